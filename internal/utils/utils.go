// Package utils holds small generic helpers shared by the service packages.
package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadID = errors.New("bad id")

type mapFunc[E any, R any] func(E) R

// Map applies f to every element of s.
func Map[S ~[]E, E any, R any](s S, f mapFunc[E, R]) []R {
	result := make([]R, len(s))
	for i, e := range s {
		result[i] = f(e)
	}

	return result
}

type keepFunc[E any] func(E) bool

// Filter keeps the elements of s for which f holds, in order. It never
// returns nil.
func Filter[S ~[]E, E any](s S, f keepFunc[E]) S {
	result := S{}
	for _, v := range s {
		if f(v) {
			result = append(result, v)
		}
	}

	return result
}

// ParseID reads a strictly positive decimal id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadID, s)
	}

	return id, nil
}

// ParseOptionalID is ParseID where a blank input means absent.
func ParseOptionalID(s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return nil, err
	}

	return &id, nil
}
