package price

import "errors"

var (
	// ErrNoPrice means no source returned a usable USD price.
	ErrNoPrice = errors.New("no usable price")
	// ErrOutOfRange marks a price outside the accepted sanity window.
	ErrOutOfRange = errors.New("price outside sanity range")
)
