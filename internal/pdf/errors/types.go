package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes form bridge failures
type Kind int

const (
	KindUnknown Kind = iota
	KindNoDocument
	KindLoadFailure
	KindFieldNotFound
	KindTypeMismatch
	KindValueNotInOptions
	KindSaveError
	KindReadBackError
	KindPageOutOfRange
	KindRenderFailure
	KindFileAccess
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNoDocument:
		return "NO_DOCUMENT"
	case KindLoadFailure:
		return "LOAD_FAILURE"
	case KindFieldNotFound:
		return "FIELD_NOT_FOUND"
	case KindTypeMismatch:
		return "TYPE_MISMATCH"
	case KindValueNotInOptions:
		return "VALUE_NOT_IN_OPTIONS"
	case KindSaveError:
		return "SAVE_ERROR"
	case KindReadBackError:
		return "READ_BACK_ERROR"
	case KindPageOutOfRange:
		return "PAGE_OUT_OF_RANGE"
	case KindRenderFailure:
		return "RENDER_FAILURE"
	case KindFileAccess:
		return "FILE_ACCESS"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether a caller can reasonably retry with different
// input (another password, another value, another page).
func (k Kind) IsRecoverable() bool {
	switch k {
	case KindLoadFailure, KindFieldNotFound, KindTypeMismatch,
		KindValueNotInOptions, KindPageOutOfRange, KindFileAccess:
		return true
	default:
		return false
	}
}

// FormError is the error value returned by the form bridge
type FormError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Page    int    `json:"page,omitempty"`
	Code    int    `json:"code,omitempty"` // engine error code, when one applies
	Err     error  `json:"-"`
}

// Sentinels for errors.Is comparisons. Only the Kind is compared.
var (
	ErrNoDocument        = &FormError{Kind: KindNoDocument}
	ErrLoadFailure       = &FormError{Kind: KindLoadFailure}
	ErrFieldNotFound     = &FormError{Kind: KindFieldNotFound}
	ErrTypeMismatch      = &FormError{Kind: KindTypeMismatch}
	ErrValueNotInOptions = &FormError{Kind: KindValueNotInOptions}
	ErrSaveError         = &FormError{Kind: KindSaveError}
	ErrReadBackError     = &FormError{Kind: KindReadBackError}
	ErrPageOutOfRange    = &FormError{Kind: KindPageOutOfRange}
	ErrRenderFailure     = &FormError{Kind: KindRenderFailure}
	ErrFileAccess        = &FormError{Kind: KindFileAccess}
)

// Error implements the error interface
func (e *FormError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *FormError) Unwrap() error {
	return e.Err
}

// Is matches any FormError of the same Kind
func (e *FormError) Is(target error) bool {
	var t *FormError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a FormError of the given kind
func New(kind Kind, format string, args ...interface{}) *FormError {
	return &FormError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a FormError of the given kind around err
func Wrap(kind Kind, err error, format string, args ...interface{}) *FormError {
	return &FormError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithField records the field name the error refers to
func (e *FormError) WithField(name string) *FormError {
	e.Field = name
	return e
}

// WithCode records an engine error code
func (e *FormError) WithCode(code int) *FormError {
	e.Code = code
	return e
}

// WithPage records the page index the error refers to
func (e *FormError) WithPage(page int) *FormError {
	e.Page = page
	return e
}

// KindOf returns the Kind of err, or KindUnknown when err is not a FormError
func KindOf(err error) Kind {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
