package database

import "errors"

// ErrNotReady indicates the capture store cannot serve queries yet.
var ErrNotReady = errors.New("database not ready")
