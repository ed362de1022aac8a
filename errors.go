package binskema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/binskema/i18n"
)

// Phase tells which operation raised an Error.
type Phase int

const (
	PhaseSchema Phase = iota // schema construction (Builder)
	PhaseDecode
	PhaseEncode
)

func (p Phase) String() string {
	switch p {
	case PhaseSchema:
		return "schema"
	case PhaseDecode:
		return "decode"
	case PhaseEncode:
		return "encode"
	}
	return "unknown"
}

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	// Schema construction
	CodeDuplicateFieldName          = "duplicate_field_name"
	CodeFormatterWithoutDeformatter = "formatter_without_deformatter"
	CodeUnsupportedPrimitive        = "unsupported_primitive"
	CodeInvalidLength               = "invalid_length"
	CodeInvalidBitWidth             = "invalid_bit_width"
	CodeInvalidOption               = "invalid_option"
	// Decode
	CodeUnexpectedEOF   = "unexpected_eof"
	CodeTruncatedStream = "truncated_stream"
	CodeAssertionFailed = "assertion_failed"
	CodeTagNotFound     = "tag_not_found"
	CodeInvalidChoice   = "invalid_choice"
	CodeInvalidEncoding = "invalid_encoding"
	CodeNoProgress      = "no_progress"
	// Encode
	CodeNestedOverflow = "nested_overflow"
	CodeInvalidMapping = "invalid_mapping"
	CodeMissingField   = "missing_field"
	CodeInvalidValue   = "invalid_value"
	CodeShortBuffer    = "short_buffer"
)

// Error is the single error type returned by schemas and builders.
type Error struct {
	Phase   Phase
	Code    string // One of the codes listed above.
	Path    string // JSON Pointer of the failing field (for example: /lumps/2/name).
	Offset  int64  // Byte offset in the input (-1 when unknown).
	Message string
	Cause   error // Optional: underlying error.
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "binskema: %s: %s", e.Phase, e.Code)
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(b, " (offset %d)", e.Offset)
	}
	if e.Message != "" && e.Message != e.Code {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by code, so errors.Is(err, ErrInvalidChoice) works for any
// path or offset.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrDuplicateFieldName          = &Error{Code: CodeDuplicateFieldName}
	ErrFormatterWithoutDeformatter = &Error{Code: CodeFormatterWithoutDeformatter}
	ErrUnsupportedPrimitive        = &Error{Code: CodeUnsupportedPrimitive}
	ErrInvalidLength               = &Error{Code: CodeInvalidLength}
	ErrInvalidBitWidth             = &Error{Code: CodeInvalidBitWidth}
	ErrInvalidOption               = &Error{Code: CodeInvalidOption}
	ErrUnexpectedEOF               = &Error{Code: CodeUnexpectedEOF}
	ErrTruncatedStream             = &Error{Code: CodeTruncatedStream}
	ErrAssertionFailed             = &Error{Code: CodeAssertionFailed}
	ErrTagNotFound                 = &Error{Code: CodeTagNotFound}
	ErrInvalidChoice               = &Error{Code: CodeInvalidChoice}
	ErrInvalidEncoding             = &Error{Code: CodeInvalidEncoding}
	ErrNoProgress                  = &Error{Code: CodeNoProgress}
	ErrNestedOverflow              = &Error{Code: CodeNestedOverflow}
	ErrInvalidMapping              = &Error{Code: CodeInvalidMapping}
	ErrMissingField                = &Error{Code: CodeMissingField}
	ErrInvalidValue                = &Error{Code: CodeInvalidValue}
	ErrShortBuffer                 = &Error{Code: CodeShortBuffer}
)

// ErrStreamClosed is returned when a stream decoder is written to after End.
var ErrStreamClosed = errors.New("binskema: stream already ended")

// AsError extracts *Error from an error using errors.As internally.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func newError(phase Phase, code string, data map[string]string, cause error) *Error {
	return &Error{Phase: phase, Code: code, Offset: -1, Message: i18n.T(code, data), Cause: cause}
}

func schemaError(code string, data map[string]string) *Error {
	return newError(PhaseSchema, code, data, nil)
}

func decodeError(code string, cause error) *Error {
	return newError(PhaseDecode, code, nil, cause)
}

func encodeError(code string, cause error) *Error {
	return newError(PhaseEncode, code, nil, cause)
}

func missingField(phase Phase, name string) *Error {
	return newError(phase, CodeMissingField, map[string]string{"field": name}, nil)
}

// asError converts arbitrary errors (for example from user formatters) into
// *Error with CodeInvalidValue, keeping the original as Cause.
func asError(phase Phase, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(phase, CodeInvalidValue, nil, err)
}

// withPath prefixes the error path with the given field segments.
func withPath(phase Phase, err error, segs ...string) error {
	if err == nil || err == errSuspend {
		return err
	}
	e := *asError(phase, err)
	e.Path = pointer(segs) + e.Path
	return &e
}
