package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger and the services matches
// exactly one of them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrStore             = errors.New("store error")
	ErrInconsistent      = errors.New("ledger inconsistent")
)

// Coded sentinels. Compare with errors.Is; the concrete error carries the
// amounts involved in its message.
var (
	ErrInsufficientStudentHours = &Error{Kind: ErrValidation, Code: "insufficient_student_hours", Field: "hours"}
	ErrInsufficientRequestHours = &Error{Kind: ErrValidation, Code: "insufficient_request_hours", Field: "hours"}
	ErrRequestNotApproved       = &Error{Kind: ErrValidation, Code: "request_not_approved", Field: "service_request_id"}
	ErrAllotmentBelowCommitted  = &Error{Kind: ErrValidation, Code: "allotment_below_committed", Field: "total_hours"}
	ErrCompletedServiceOnRecord = &Error{Kind: ErrConflict, Code: "completed_service_on_record"}
)

// Error is a classified application error.
type Error struct {
	Kind    error
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Is matches coded sentinels by code, so a sentinel and a detailed instance
// of the same failure compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// With returns a copy of a coded sentinel carrying a formatted message.
func (e *Error) With(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func Validation(field, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Code: "invalid_" + field, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, id string) error {
	return &Error{Kind: ErrNotFound, Code: resource + "_not_found", Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func InvalidTransition(resource, from, to string) error {
	return &Error{
		Kind:    ErrInvalidTransition,
		Code:    "invalid_transition",
		Field:   "status",
		Message: fmt.Sprintf("%s cannot move from %s to %s", resource, from, to),
	}
}

func Conflict(field, format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Code: "duplicate_" + field, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Inconsistent(format string, args ...interface{}) error {
	return &Error{Kind: ErrInconsistent, Code: "ledger_inconsistent", Message: fmt.Sprintf(format, args...)}
}

// Store wraps a failure of the storage call itself. Errors that are already
// classified pass through unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &Error{Kind: ErrStore, Code: "store_failure", Message: op, Err: err}
}

// Classified reports whether err already belongs to one of the kinds above.
func Classified(err error) bool {
	return Is(err, ErrValidation, ErrInvalidTransition, ErrNotFound, ErrConflict, ErrStore, ErrInconsistent)
}

// Is returns whether err matches target or any of errList.
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// FieldOf returns the offending field of a classified error, if any.
func FieldOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// CodeOf returns the machine-readable code of a classified error, if any.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
