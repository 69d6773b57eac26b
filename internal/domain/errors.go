// Package domain defines the greeting service's persistence models and its
// error taxonomy. Errors here are transport-agnostic: the HTTP layer decides
// how each kind maps to a status code.
package domain

import (
	"slices"
	"strings"
)

// Domain error kinds.
const (
	KindProfileNotValid = "profile_not_valid"
)

// DomainError is a named business-rule violation carrying one message.
// It is expected and caller-induced rather than an internal fault.
type DomainError struct {
	Kind    string
	Message string
}

// NewDomainError returns a DomainError of the given kind.
func NewDomainError(kind, msg string) *DomainError {
	return &DomainError{Kind: kind, Message: msg}
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is matches another *DomainError of the same kind, so sentinels such as
// ErrProfileNotValid work with errors.Is regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e != nil && t != nil && t.Kind == e.Kind
}

// ErrProfileNotValid is the sentinel for unknown greeting profiles.
var ErrProfileNotValid = &DomainError{Kind: KindProfileNotValid, Message: "profile not valid"}

// ProfileNotValid reports that the named greeting profile does not exist.
func ProfileNotValid(profile string) *DomainError {
	return NewDomainError(KindProfileNotValid, ErrProfileNotValid.Message+": "+profile)
}

// ValidationError aggregates field-level messages produced by input
// validation. Messages are kept in arrival order; Sorted and Error present
// them in lexicographic order.
type ValidationError struct {
	Messages []string
}

// NewValidationError returns a ValidationError holding msgs.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

// Sorted returns a sorted copy of the messages.
func (e *ValidationError) Sorted() []string {
	if e == nil {
		return nil
	}
	out := slices.Clone(e.Messages)
	slices.Sort(out)
	return out
}

// Error joins the sorted messages with ", ".
func (e *ValidationError) Error() string {
	return strings.Join(e.Sorted(), ", ")
}
