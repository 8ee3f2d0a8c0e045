package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrMisconfigured      = errors.New("auth config invalid")

	ErrPrincipalNotFound   = errors.New("principal not found")
	ErrMalformedIdentity   = errors.New("malformed identity")
	ErrUnknownIdentityKind = errors.New("unknown identity kind")

	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenForged    = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// isUnresolvable reports whether err means the identity cannot be turned into
// a principal, as opposed to a collaborator failure.
func isUnresolvable(err error) bool {
	return errors.Is(err, ErrPrincipalNotFound) ||
		errors.Is(err, ErrMalformedIdentity) ||
		errors.Is(err, ErrUnknownIdentityKind)
}
