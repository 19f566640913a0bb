package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Kind classifies an error so the boundary layer can map it to a response.
type Kind string

const (
	KindUnknown                 Kind = ""
	KindPayloadTooLarge         Kind = "payload_too_large"
	KindUnsupportedMediaType    Kind = "unsupported_media_type"
	KindTextTooShort            Kind = "text_too_short"
	KindBadRequest              Kind = "bad_request"
	KindStorage                 Kind = "storage_error"
	KindNoBackendAvailable      Kind = "no_backend_available"
	KindTranscriptionFailed     Kind = "transcription_failed"
	KindSummarizationFailed     Kind = "summarization_failed"
	KindConnectivityCheckFailed Kind = "connectivity_check_failed"
)

var kindStatus = map[Kind]int{
	KindPayloadTooLarge:         http.StatusRequestEntityTooLarge,
	KindUnsupportedMediaType:    http.StatusBadRequest,
	KindTextTooShort:            http.StatusBadRequest,
	KindBadRequest:              http.StatusBadRequest,
	KindStorage:                 http.StatusInternalServerError,
	KindNoBackendAvailable:      http.StatusServiceUnavailable,
	KindTranscriptionFailed:     http.StatusInternalServerError,
	KindSummarizationFailed:     http.StatusInternalServerError,
	KindConnectivityCheckFailed: http.StatusServiceUnavailable,
}

// Status returns the HTTP status associated with a kind.
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error represents a custom error with stack trace
type Error struct {
	Kind    Kind       `json:"kind,omitempty"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != KindUnknown {
		return string(e.Kind)
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Errors without a
// kind only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == KindUnknown || t.Kind == KindUnknown {
		return e == t
	}
	return e.Kind == t.Kind
}

// WithKind creates a new error of the given kind; the code is derived from the kind.
func WithKind(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    kind.Status(),
		Message: message,
		Stack:   captureStack(),
	}
}

// WithKindf creates a new error of the given kind with a formatted message.
func WithKindf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Code:    kind.Status(),
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   captureStack(),
	}
}

// WrapKind wraps err into an error of the given kind. The message is suffixed
// with the cause so the original text is never lost.
func WrapKind(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	msg := message
	if msg == "" {
		msg = err.Error()
	} else {
		msg = message + ": " + err.Error()
	}
	return &Error{
		Kind:    kind,
		Code:    kind.Status(),
		Message: msg,
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a new error
func New(message string) *Error {
	return &Error{
		Message: message,
		Stack:   captureStack(),
	}
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	newErr := e.clone()
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return newErr
}

// ContextMap returns the attached context as a map, later keys win.
func (e *Error) ContextMap() map[string]string {
	m := make(map[string]string, len(e.Context))
	for _, kv := range e.Context {
		m[kv.Key] = kv.Value
	}
	return m
}

func (e *Error) clone() *Error {
	newErr := &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context)),
	}
	copy(newErr.Context, e.Context)
	return newErr
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// drop the goroutine header and the frames of this package
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}

	return strings.TrimSpace(stack)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first kinded *Error in err's chain.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != KindUnknown {
			return e.Kind
		}
		err = stderrors.Unwrap(err)
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an error of the given kind.
func IsKind(err error, kind Kind) bool {
	return kind != KindUnknown && KindOf(err) == kind
}

// GetStack returns the error stack trace
func GetStack(err error) string {
	if e, ok := As(err); ok {
		return e.Stack
	}
	return ""
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
