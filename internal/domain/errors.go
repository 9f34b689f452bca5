package domain

import "errors"

var (
	// ErrInvalidInput marks a misuse of the resolver or parsers: an empty
	// boundary set, a duplicate label, a malformed time string.
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyTime    = errors.New("empty time")
)
