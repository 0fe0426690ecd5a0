package storage

import "errors"

// ErrGetMulti wraps a failure of a bulk cache read.
var ErrGetMulti = errors.New("bulk cache: get multi failed")

// ErrSetMulti wraps a failure of a bulk cache write.
var ErrSetMulti = errors.New("bulk cache: set multi failed")
