package model

import "errors"

var (
	ErrClusterNotFound = errors.New("cluster not found")
	ErrClusterInvalid  = errors.New("cluster invalid")
	ErrClusterExists   = errors.New("cluster already exists")
)

var (
	ErrInstallationNotFound = errors.New("installation not found")
	ErrReleaseNotFound      = errors.New("release not found")
)

var (
	// ErrInvalidOptions marks a usage error caused by a bad flag combination.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrNotLoggedIn is returned when no usable cloud credentials are available.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrTimeout is returned when a step does not finish in time.
	ErrTimeout = errors.New("timeout")
)
