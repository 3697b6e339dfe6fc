// Package cli provides shared utilities for CLI commands.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// MinPrefixLength is the shortest id prefix accepted by ResolveID.
const MinPrefixLength = 4

var (
	// ErrNoMatch indicates no id matched.
	ErrNoMatch = errors.New("no matching item")
	// ErrAmbiguous indicates an id prefix matched more than one item.
	ErrAmbiguous = errors.New("ambiguous id prefix")
)

// ResolveID maps a user-typed id to one of ids. An exact match always
// wins; otherwise a prefix of at least MinPrefixLength characters must
// match exactly one id.
func ResolveID(input string, ids []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty id", ErrNoMatch)
	}
	if slices.Contains(ids, input) {
		return input, nil
	}
	if len(input) < MinPrefixLength {
		return "", fmt.Errorf("%w: '%s' (use at least %d characters of the id)", ErrNoMatch, input, MinPrefixLength)
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: '%s'", ErrNoMatch, input)
	case 1:
		return matches[0], nil
	default:
		slices.Sort(matches)
		return "", fmt.Errorf("%w: '%s' matches %s", ErrAmbiguous, input, strings.Join(matches, ", "))
	}
}

// ExpandPattern expands a glob pattern against available values.
// If the pattern contains glob characters (*?[), it performs glob matching.
// Otherwise, it performs exact matching.
func ExpandPattern(pattern string, available []string) ([]string, error) {
	// Validate pattern syntax
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		if slices.Contains(available, pattern) {
			return []string{pattern}, nil
		}
		return nil, fmt.Errorf("%w: '%s'", ErrNoMatch, pattern)
	}

	var matches []string
	for _, value := range available {
		matched, err := filepath.Match(pattern, value)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, value)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no values match pattern '%s'", ErrNoMatch, pattern)
	}

	return matches, nil
}

// MatchAny reports whether any value matches any of the glob patterns.
// An empty pattern list matches everything.
func MatchAny(patterns []string, values []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return false, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		for _, value := range values {
			if ok, _ := filepath.Match(pattern, value); ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// SplitList splits a comma-separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ShortID returns the leading part of id used in listings.
func ShortID(id string) string {
	const n = 8
	if len(id) <= n {
		return id
	}
	return id[:n]
}
