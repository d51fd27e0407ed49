// FILE: lixenwraith/tunable/errors.go
package tunable

import (
	"errors"
	"fmt"
)

// Sentinel errors, compared with errors.Is.
var (
	// ErrInvalidArgument marks structural declaration errors: malformed getters,
	// missing setters, bad title providers. These are never subject to the lenient policy.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidSubject = errors.New("subject must be a non-nil pointer to a struct")
	ErrNoHandler      = errors.New("no handler factory accepted the member")
	ErrFactoryFailed  = errors.New("handler factory failed")
	ErrBadContainer   = errors.New("tunable container is nil or not a struct")
	ErrDuplicateTitle = errors.New("more than one title provider")
	ErrUnknownPath    = errors.New("no tunable at path")
	ErrPresetNotFound = errors.New("preset file not found")
	ErrPresetFormat   = errors.New("unable to determine preset format")
	ErrReadOnly       = errors.New("member cannot be set")
)

// MemberError gives context to a failure on one member of a subject.
type MemberError struct {
	Op      string // "scan", "title", "set", ...
	Subject string // subject type name
	Member  string // field or method name, empty for subject-level failures
	Err     error
}

func (e *MemberError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s %s.%s: %v", e.Op, e.Subject, e.Member, e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}

// structural wraps a declaration error with ErrInvalidArgument.
func structural(op, subject, member, format string, args ...any) error {
	return &MemberError{
		Op:      op,
		Subject: subject,
		Member:  member,
		Err:     fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...)),
	}
}
