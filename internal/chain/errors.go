package chain

import "errors"

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrEmptyResult    = errors.New("empty contract call result")
	ErrWrongChain     = errors.New("rpc endpoint serves a different chain")
)
