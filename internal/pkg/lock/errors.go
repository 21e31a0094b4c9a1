package lock

import "errors"

// ErrLockTimeout is returned when a user's previous event is still being handled.
var ErrLockTimeout = errors.New("user lock acquisition timeout")
