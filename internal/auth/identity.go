package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrIdentityVerificationFailed covers every way an identity assertion can be
// refused, transport failures included.
var ErrIdentityVerificationFailed = errors.New("identity verification failed")

// Identity is what the identity provider vouches for.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
}

// IdentityVerifier validates an externally issued identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*Identity, error)
}

// FirebaseVerifier resolves ID tokens through the Identity Toolkit
// accounts:lookup endpoint.
type FirebaseVerifier struct {
	lookupURL string
	apiKey    string
	client    *http.Client
}

func NewFirebaseVerifier(lookupURL, apiKey string, timeout time.Duration) *FirebaseVerifier {
	return &FirebaseVerifier{
		lookupURL: lookupURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"users"`
}

func (v *FirebaseVerifier) Verify(ctx context.Context, assertion string) (*Identity, error) {
	body, err := json.Marshal(lookupRequest{IDToken: assertion})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding lookup: %v", ErrIdentityVerificationFailed, err)
	}

	endpoint := v.lookupURL + "?key=" + url.QueryEscape(v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building lookup: %v", ErrIdentityVerificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup request: %v", ErrIdentityVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: lookup returned %d: %s", ErrIdentityVerificationFailed, resp.StatusCode, msg)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding lookup: %v", ErrIdentityVerificationFailed, err)
	}
	if len(out.Users) == 0 || out.Users[0].LocalID == "" {
		return nil, fmt.Errorf("%w: no account for token", ErrIdentityVerificationFailed)
	}

	u := out.Users[0]
	return &Identity{
		SubjectID:   u.LocalID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}, nil
}
