package generation

import "errors"

const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// ErrUpstream wraps any failure of the generation backend.
var ErrUpstream = errors.New("generation backend failed")

// Request is the body of POST /v1/generate.
type Request struct {
	Prompt      string   `json:"prompt" validate:"required"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,min=1,max=4096"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=5"`
}

func (r Request) maxTokens() int {
	if r.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *r.MaxTokens
}

func (r Request) temperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

type Response struct {
	Result string `json:"result"`
}
