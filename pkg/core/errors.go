package core

import (
	"errors"
	"fmt"
)

// Error classes. Every failure produced by masquerade wraps exactly one of these.
var (
	ErrIOFailure         = errors.New("io failure")
	ErrNotLoaded         = errors.New("not loaded")
	ErrUnknownFunction   = errors.New("unknown function")
	ErrParameterMismatch = errors.New("parameter mismatch")
	ErrInvalidPattern    = errors.New("invalid pattern")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrInvalidRange      = errors.New("invalid range")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

var classes = []struct {
	err  error
	name string
}{
	{ErrIOFailure, "IOFailure"},
	{ErrNotLoaded, "NotLoaded"},
	{ErrUnknownFunction, "UnknownFunction"},
	{ErrParameterMismatch, "ParameterMismatch"},
	{ErrInvalidPattern, "InvalidPattern"},
	{ErrInvalidFormat, "InvalidFormat"},
	{ErrInvalidRange, "InvalidRange"},
	{ErrStoreUnavailable, "StoreUnavailable"},
}

// Classify returns the class name of err, or "Other" for unclassified errors.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "Other"
}

// IsConfigError reports whether err is a rule configuration error, which
// aborts the offending rule rather than a single row.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownFunction) || errors.Is(err, ErrParameterMismatch)
}

// ValueString renders a column value for comparisons and change logs.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
