package deck

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRunStopped marks entities skipped because the run was cancelled before they started.
var ErrRunStopped = errors.New("run stopped before entity started")

// ValidationError reports a malformed manifest row or config value.
type ValidationError struct {
	Entity string
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("entity %q: invalid %s %q: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// NotFoundError reports a missing tab, file, folder or slide.
type NotFoundError struct {
	Kind   string
	Name   string
	Parent string
}

func (e *NotFoundError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("%s not found: %q in %s", e.Kind, e.Name, e.Parent)
	}
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Name)
}

// PlaceholderResolutionError lists every placeholder with no dataset entry.
type PlaceholderResolutionError struct {
	Entity  string
	Missing []Token
}

// NewPlaceholderResolutionError sorts and deduplicates the missing tokens.
func NewPlaceholderResolutionError(entity string, missing []Token) *PlaceholderResolutionError {
	seen := make(map[Token]bool, len(missing))
	uniq := make([]Token, 0, len(missing))
	for _, t := range missing {
		if !seen[t] {
			seen[t] = true
			uniq = append(uniq, t)
		}
	}
	sort.Slice(uniq, func(i, j int) bool {
		return uniq[i].String() < uniq[j].String()
	})
	return &PlaceholderResolutionError{Entity: entity, Missing: uniq}
}

// Keys returns the missing placeholders as display strings.
func (e *PlaceholderResolutionError) Keys() []string {
	keys := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		keys[i] = t.String()
	}
	return keys
}

func (e *PlaceholderResolutionError) Error() string {
	return fmt.Sprintf("unresolved placeholders for entity %q: %s", e.Entity, strings.Join(e.Keys(), ", "))
}

// TransientAPIError is returned once the retry budget for an API call is spent.
type TransientAPIError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientAPIError) Unwrap() error { return e.Err }

// PermissionError reports a resource the credential cannot access.
type PermissionError struct {
	Resource string
	Op       string
	Err      error
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied on %s", e.Resource)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PermissionError) Unwrap() error { return e.Err }

// FailureKind buckets errors for reporting.
type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailureNotFound    FailureKind = "not_found"
	FailurePlaceholder FailureKind = "placeholder"
	FailureTransient   FailureKind = "transient"
	FailurePermission  FailureKind = "permission"
	FailureStopped     FailureKind = "stopped"
	FailureInternal    FailureKind = "internal"
)

// Classify maps an error to its FailureKind.
func Classify(err error) FailureKind {
	var (
		validation  *ValidationError
		notFound    *NotFoundError
		placeholder *PlaceholderResolutionError
		transient   *TransientAPIError
		permission  *PermissionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRunStopped), errors.Is(err, context.Canceled):
		return FailureStopped
	case errors.As(err, &validation):
		return FailureValidation
	case errors.As(err, &placeholder):
		return FailurePlaceholder
	case errors.As(err, &permission):
		return FailurePermission
	case errors.As(err, &transient), errors.Is(err, context.DeadlineExceeded):
		return FailureTransient
	case errors.As(err, &notFound):
		return FailureNotFound
	}
	return FailureInternal
}

// NewFailure builds a Failure record for an entity.
func NewFailure(entity string, err error) Failure {
	return Failure{
		Entity:       entity,
		ErrorMessage: err.Error(),
		Kind:         Classify(err),
		Err:          err,
	}
}
