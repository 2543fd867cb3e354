package shared

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidState        Kind = "invalid_state"
	KindRuleViolation       Kind = "rule_violation"
	KindMisconfigured       Kind = "misconfigured"
	KindInternalConsistency Kind = "internal_consistency"
)

// Failure is a typed rejection. Subject names the offending entity or key,
// Reason is the human readable cause.
type Failure struct {
	Kind    Kind
	Subject string
	Reason  string
}

func (f *Failure) Error() string {
	switch {
	case f.Subject != "" && f.Reason != "":
		return fmt.Sprintf("%s: %s: %s", f.Kind, f.Subject, f.Reason)
	case f.Subject != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Subject)
	case f.Reason != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
	default:
		return string(f.Kind)
	}
}

// Is reports whether target is the sentinel of the same kind.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Subject == "" && t.Reason == "" && t.Kind == f.Kind
}

var (
	// ErrNotFound matches any KindNotFound failure.
	ErrNotFound = &Failure{Kind: KindNotFound}
	// ErrInvalidInput matches any KindInvalidInput failure.
	ErrInvalidInput = &Failure{Kind: KindInvalidInput}
	// ErrInvalidState matches any KindInvalidState failure.
	ErrInvalidState = &Failure{Kind: KindInvalidState}
	// ErrRuleViolation matches any KindRuleViolation failure.
	ErrRuleViolation = &Failure{Kind: KindRuleViolation}
	// ErrMisconfigured matches any KindMisconfigured failure.
	ErrMisconfigured = &Failure{Kind: KindMisconfigured}
	// ErrInternalConsistency matches any KindInternalConsistency failure.
	ErrInternalConsistency = &Failure{Kind: KindInternalConsistency}

	// ErrUnauthenticated is returned when no acting auxiliary can be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
)

func NotFound(subject string) error { return &Failure{Kind: KindNotFound, Subject: subject} }

func InvalidInput(reason string) error { return &Failure{Kind: KindInvalidInput, Reason: reason} }

func InvalidState(subject, reason string) error {
	return &Failure{Kind: KindInvalidState, Subject: subject, Reason: reason}
}

func RuleViolation(reason string) error { return &Failure{Kind: KindRuleViolation, Reason: reason} }

func Misconfigured(subject, reason string) error {
	return &Failure{Kind: KindMisconfigured, Subject: subject, Reason: reason}
}

func InternalConsistency(reason string) error {
	return &Failure{Kind: KindInternalConsistency, Reason: reason}
}

// KindOf extracts the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
