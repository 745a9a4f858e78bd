package reqsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golobby/cast"
	pkgerrors "github.com/pkg/errors"
)

const (
	// DefaultRequestErrorName is the Name of a RequestError built from a
	// value that does not carry a name.
	DefaultRequestErrorName = "RequestError"

	// DefaultRequestErrorMessage is the Message of a RequestError built from
	// a value that carries neither a message nor a status.
	DefaultRequestErrorMessage = "Unspecified"
)

// ErrMissingHandler is returned by Service.Send when no handler is installed.
var ErrMissingHandler = errors.New("reqsvc: missing request handler")

// RequestError is the uniform failure of a request.
//
// Handlers are expected to return a *RequestError for any failed call, e.g.
//
//	if res.StatusCode >= 400 {
//	    return nil, reqsvc.NewRequestError(res)
//	}
type RequestError struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       any    `json:"data,omitempty"`

	cause error
	stack error
}

// ErrorParams holds the fields a RequestError can be built from.
// Zero fields are treated as absent.
type ErrorParams struct {
	Name       string
	Message    string
	Status     int
	StatusText string
	Data       any
}

// NewRequestError builds a RequestError out of an arbitrary value.
//
// Fields are read only from values that are records: maps, ErrorParams,
// *RequestError, *http.Response and errors. Any other value (a string, a
// number, nil) produces a RequestError with default fields.
//
// The message is the explicit message if any, else "<status> <statusText>",
// else DefaultRequestErrorMessage.
func NewRequestError(v any) *RequestError {
	rec := asRecord(v)

	status, _ := rec.lookup("status")
	statusText, _ := rec.lookup("statusText")
	message, _ := rec.lookup("message")
	name, hasName := rec.lookup("name")
	data, _ := rec.lookup("data")

	var parts []string
	for _, p := range []any{status, statusText} {
		if truthy(p) {
			parts = append(parts, stringify(p))
		}
	}

	e := &RequestError{
		Name:    DefaultRequestErrorName,
		Message: DefaultRequestErrorMessage,
		Data:    data,
	}
	switch {
	case truthy(message):
		e.Message = stringify(message)
	case len(parts) > 0:
		e.Message = strings.Join(parts, " ")
	}
	if hasName && name != nil {
		e.Name = stringify(name)
	}
	e.Status = toStatus(status)
	if statusText != nil {
		e.StatusText = stringify(statusText)
	}
	if err, ok := v.(error); ok && !isNil(err) {
		e.cause = err
		e.stack = pkgerrors.WithStack(err)
	} else {
		e.stack = pkgerrors.New(e.Message)
	}
	return e
}

// Error implements error.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Unwrap returns the error the RequestError was built from, if any.
func (e *RequestError) Unwrap() error {
	return e.cause
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// StackTrace returns the call stack of the caller of NewRequestError.
func (e *RequestError) StackTrace() pkgerrors.StackTrace {
	st, ok := e.stack.(stackTracer)
	if !ok {
		return nil
	}
	trace := st.StackTrace()
	// The first frame is NewRequestError itself.
	if len(trace) > 0 {
		trace = trace[1:]
	}
	return trace
}

// Format implements fmt.Formatter. The %+v verb prints the stack trace
// after the message.
func (e *RequestError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, e.Error())
			e.StackTrace().Format(s, verb)
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// ErrorData returns the Data of the RequestError in err's chain as a T.
func ErrorData[T any](err error) (T, bool) {
	var zero T
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return zero, false
	}
	data, ok := reqErr.Data.(T)
	return data, ok
}

// record is a value whose named fields can be read.
type record interface {
	lookup(key string) (any, bool)
}

// noRecord is the record of a value that has no fields.
type noRecord struct{}

func (noRecord) lookup(string) (any, bool) { return nil, false }

type mapRecord map[string]any

func (m mapRecord) lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// asRecord wraps v in a record, or returns noRecord when v has no fields.
func asRecord(v any) record {
	switch x := v.(type) {
	case nil:
		return noRecord{}
	case map[string]any:
		return mapRecord(x)
	case Values:
		return mapRecord(x)
	case map[string]string:
		m := make(mapRecord, len(x))
		for k, s := range x {
			m[k] = s
		}
		return m
	case ErrorParams:
		return paramsRecord(&x)
	case *ErrorParams:
		if x == nil {
			return noRecord{}
		}
		return paramsRecord(x)
	case *RequestError:
		if x == nil {
			return noRecord{}
		}
		return mapRecord{
			"name":       x.Name,
			"message":    x.Message,
			"status":     x.Status,
			"statusText": x.StatusText,
			"data":       x.Data,
		}
	case *http.Response:
		if x == nil {
			return noRecord{}
		}
		return mapRecord{
			"status":     x.StatusCode,
			"statusText": StatusText(x),
		}
	case error:
		var reqErr *RequestError
		if errors.As(x, &reqErr) {
			return asRecord(reqErr)
		}
		return mapRecord{"message": x.Error()}
	}
	return noRecord{}
}

func paramsRecord(p *ErrorParams) record {
	m := mapRecord{}
	if p.Name != "" {
		m["name"] = p.Name
	}
	if p.Message != "" {
		m["message"] = p.Message
	}
	if p.Status != 0 {
		m["status"] = p.Status
	}
	if p.StatusText != "" {
		m["statusText"] = p.StatusText
	}
	if p.Data != nil {
		m["data"] = p.Data
	}
	return m
}

// truthy reports whether v is neither absent, empty, zero nor false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

var float64Type = reflect.TypeOf(float64(0))

// toStatus coerces v into a status code. Absent or unparseable values are 0.
func toStatus(v any) int {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		converted, err := cast.FromType(s, float64Type)
		if err != nil {
			return 0
		}
		parsed, ok := converted.(float64)
		if !ok {
			return 0
		}
		f = parsed
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		default:
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// ErrorTransformer maps an arbitrary error to a RequestError.
// If it returns nil, DefaultErrorTransformer applies.
type ErrorTransformer func(error) *RequestError

// DefaultErrorTransformer maps standard Go errors to request errors.
func DefaultErrorTransformer(err error) *RequestError {
	if err == nil {
		return nil
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		e := NewRequestError(err)
		e.Status = http.StatusGatewayTimeout
		e.StatusText = http.StatusText(http.StatusGatewayTimeout)
		return e
	}

	if errors.Is(err, context.Canceled) {
		e := NewRequestError(err)
		e.Status = 499 // Client Closed Request (Nginx standard)
		e.StatusText = "Client Closed Request"
		return e
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		e := NewRequestError(ErrorParams{
			Name:    "ValidationError",
			Message: strings.Join(messages, "; "),
			Data:    details,
		})
		e.cause = err
		return e
	}

	// Handle multi-errors (errors.Join)
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		errs := u.Unwrap()
		if len(errs) > 0 {
			first := DefaultErrorTransformer(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			e := NewRequestError(ErrorParams{
				Name:       first.Name,
				Message:    strings.Join(msgs, "; "),
				Status:     first.Status,
				StatusText: first.StatusText,
				Data:       first.Data,
			})
			e.cause = err
			return e
		}
	}

	return NewRequestError(err)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must have length %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
