package domain

import "errors"

var (
	// ErrInvalidRole is returned when a turn carries a role outside {user, assistant}.
	ErrInvalidRole = errors.New("invalid role")

	// ErrMalformedResponse marks provider replies that could not be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrMissingCredential is returned when a provider credential cannot be resolved.
	ErrMissingCredential = errors.New("missing provider credential")
)
