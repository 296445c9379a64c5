package limits

// Limits are the effective caps for a user, or the system-wide defaults.
type Limits struct {
	Monthly int `json:"monthly"`
	Daily   int `json:"daily"`
}

// Override is a per-user exception. A nil field defers to the system
// default for that field only.
type Override struct {
	Monthly *int `json:"monthly,omitempty"`
	Daily   *int `json:"daily,omitempty"`
}

// Empty reports whether the override sets nothing.
func (o Override) Empty() bool {
	return o.Monthly == nil && o.Daily == nil
}

// Apply overlays o on base field by field.
func (o Override) Apply(base Limits) Limits {
	out := base
	if o.Monthly != nil {
		out.Monthly = *o.Monthly
	}
	if o.Daily != nil {
		out.Daily = *o.Daily
	}
	return out
}
