package errors

import "errors"

var ErrNoProbes = errors.New("degradation controller: at least one dependency probe is required")
