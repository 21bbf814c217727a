package alarms

import "errors"

// ErrNotFound is returned for an alarm id the store does not hold
var ErrNotFound = errors.New("alarm not found")
