// Package rest holds the external REST collaborator contracts this client
// depends on but does not implement: login, two-factor confirmation, and
// token refresh against the cloud account API. Those flows are out of scope
// — callers obtain a UserCredentials value however they like (an interactive
// login flow, a cached token store, a secrets manager) and hand it, wrapped
// in a CredentialsSource such as Static, to cync.NewClient or cync.NewSession.
package rest

import "time"

// UserCredentials is the minimal set of fields the protocol engine needs
// once a user has already authenticated: the cloud user id and an
// authorize token to present in the Login frame (spec §3/§4.2), plus an
// Access-Token used for the discovery REST calls (spec §4.7).
type UserCredentials struct {
	UserID       uint32
	Authorize    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether these credentials are past their stated expiry.
// A zero ExpiresAt is treated as "never expires" (useful for credentials
// sourced from a flow this package doesn't model).
func (c UserCredentials) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// CredentialsSource supplies the current UserCredentials on demand, letting
// a caller plug in token refresh, re-prompting, or a static value without
// cync needing to know which. Implementations are responsible for their own
// caching; Session calls Credentials() once per login attempt.
type CredentialsSource interface {
	Credentials() (UserCredentials, error)
}

// Static is a CredentialsSource that always returns the same credentials,
// for callers who have already obtained a long-lived authorize token out of
// band.
type Static UserCredentials

// Credentials implements CredentialsSource.
func (s Static) Credentials() (UserCredentials, error) {
	return UserCredentials(s), nil
}
