package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingClientID = errors.New("client id is not configured")
	ErrSessionExpired  = errors.New("login session expired")
	ErrAuthExpired     = errors.New("authorization expired")
	ErrNoSession       = errors.New("no active session")
	ErrProtocol        = errors.New("malformed api response")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// ValidationError rejects a scan request before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid scan request: " + e.Reason
}

// TokenExchangeError reports a non-2xx answer from the token endpoint.
type TokenExchangeError struct {
	Status int
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d", e.Status)
}

// APIError reports a non-2xx, non-401 answer from an authenticated call.
// A 401 never surfaces as APIError; it forces a logout and becomes
// ErrAuthExpired instead.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Body)
}
