package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	dErrors "velum/pkg/domain-errors"
)

// TwinID identifies a digital twin. IDs are allocated monotonically starting
// at 1 and are never reused; zero is the invalid sentinel value.
//
// Usage: construct via ParseTwinID at trust boundaries; direct casting
// bypasses validation.
type TwinID int64

// ParseTwinID validates and returns a TwinID from its string form.
func ParseTwinID(s string) (TwinID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "twin id must be a positive integer")
	}
	id := TwinID(n)
	if !id.IsValid() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "twin id must be a positive integer")
	}
	return id, nil
}

// IsValid reports whether the id lies in the allocatable range.
func (id TwinID) IsValid() bool {
	return id > 0
}

// String returns the decimal representation.
func (id TwinID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// RequestID is the opaque correlation token linking an issued oracle request
// to its eventual callback. The oracle mints it; this service never inspects
// its structure.
type RequestID string

const maxRequestIDLen = 128

// ParseRequestID validates and returns a RequestID from its string form.
func ParseRequestID(s string) (RequestID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id cannot be empty")
	}
	if len(s) > maxRequestIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request id must be valid UTF-8")
	}
	return RequestID(s), nil
}

// String returns the raw token.
func (id RequestID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id RequestID) IsZero() bool {
	return id == ""
}

// Category is a label bucketing aggregate counts, by convention the organ
// type revealed by a simulation. Labels are case-insensitive: "Heart" and
// "heart" address the same counter.
type Category string

const maxCategoryLen = 64

// ParseCategory validates, normalizes, and returns a Category.
func ParseCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category cannot be empty")
	}
	if len(trimmed) > maxCategoryLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category is too long")
	}
	if !utf8.ValidString(trimmed) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category must be valid UTF-8")
	}
	return Category(strings.ToLower(trimmed)), nil
}

// String returns the normalized label.
func (c Category) String() string {
	return string(c)
}

// IsZero reports whether the category is unset.
func (c Category) IsZero() bool {
	return c == ""
}
