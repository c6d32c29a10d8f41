package auth

import "errors"

var (
	ErrNotAuthenticated = errors.New("must be logged in")
	ErrNotAdmin         = errors.New("admin role required")
	ErrAuthentication   = errors.New("authentication failed")
	ErrSelfRemoval      = errors.New("cannot remove the currently signed-in identity")
	ErrCacheMiss        = errors.New("no cached identity")
)
