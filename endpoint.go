package reqsvc

import (
	"context"
	"fmt"
	"net/url"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaEncoder = schema.NewEncoder()
)

// Endpoint is a typed operation: a target together with the request and
// response types it accepts and produces.
//
// Req is either a *Request or a struct whose fields are tagged with the
// section of the request they fill:
//
//	type GetItemRequest struct {
//	    Params struct {
//	        ID int `schema:"id" validate:"gt=0"`
//	    } `req:"params"`
//	    Query struct {
//	        Fields string `schema:"fields,omitempty"`
//	    } `req:"query"`
//	}
//
//	var GetItem = reqsvc.NewEndpoint[GetItemRequest, *Item]("GET /items/:id")
//
// Requests and responses are validated with go-playground/validator
// struct tags before and after the call.
type Endpoint[Req any, Res any] struct {
	target           Target
	validate         bool
	errorTransformer ErrorTransformer
}

// NewEndpoint declares an operation for target.
func NewEndpoint[Req any, Res any](target Target) *Endpoint[Req, Res] {
	return &Endpoint[Req, Res]{
		target:   target,
		validate: true,
	}
}

// WithoutValidation disables struct validation of requests and responses.
func (e *Endpoint[Req, Res]) WithoutValidation() *Endpoint[Req, Res] {
	e.validate = false
	return e
}

// WithErrorTransformer sets a custom error transformer for validation
// failures. If it returns nil, DefaultErrorTransformer applies.
func (e *Endpoint[Req, Res]) WithErrorTransformer(fn ErrorTransformer) *Endpoint[Req, Res] {
	e.errorTransformer = fn
	return e
}

func (e *Endpoint[Req, Res]) transformError(err error) *RequestError {
	var reqErr *RequestError
	if e.errorTransformer != nil {
		reqErr = e.errorTransformer(err)
	}
	if reqErr == nil {
		reqErr = DefaultErrorTransformer(err)
	}
	return reqErr
}

// Target returns the target of the operation.
func (e *Endpoint[Req, Res]) Target() Target {
	return e.target
}

// Metadata returns the runtime metadata of the operation.
func (e *Endpoint[Req, Res]) Metadata() *OperationMetadata {
	method, path, _ := e.target.Split()
	return &OperationMetadata{
		Target:   e.target,
		Method:   method,
		Path:     path,
		Request:  reflect.TypeOf((*Req)(nil)).Elem(),
		Response: reflect.TypeOf((*Res)(nil)).Elem(),
	}
}

// Call sends req through s and decodes the response body into a Res.
// The raw response is returned as well, also when decoding fails.
func (e *Endpoint[Req, Res]) Call(ctx context.Context, s *Service, req Req) (Res, *Response, error) {
	var out Res

	if e.validate {
		if err := validateValue(req); err != nil {
			return out, nil, e.transformError(err)
		}
	}

	r, err := BuildRequest(req)
	if err != nil {
		return out, nil, err
	}

	res, err := s.Send(ctx, e.target, r)
	if err != nil {
		return out, res, err
	}

	if p, ok := any(&out).(**Response); ok {
		*p = res
		return out, res, nil
	}

	out, err = DecodeBody[Res](res)
	if err != nil {
		return out, res, fmt.Errorf("reqsvc: %s: %w", e.target, err)
	}

	if e.validate {
		if err := validateValue(out); err != nil {
			return out, res, e.transformError(err)
		}
	}
	return out, res, nil
}

// Bind returns a typed alias of the operation on s.
func (e *Endpoint[Req, Res]) Bind(s *Service) func(ctx context.Context, req Req) (Res, error) {
	return func(ctx context.Context, req Req) (Res, error) {
		out, _, err := e.Call(ctx, s, req)
		return out, err
	}
}

// validateValue validates structs and pointers to structs; anything else
// passes.
func validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if _, ok := rv.Interface().(Request); ok {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// BuildRequest converts v into a *Request.
//
// A *Request or Request is returned as is. A struct (or pointer to struct)
// fills the request from the fields tagged `req:"<section>"`, where section
// is one of params, query, headers, body, method, url or path. Struct-typed
// params, query and headers are encoded with gorilla/schema; maps are
// copied. Untagged fields are ignored. A nil v is a call without arguments.
func BuildRequest(v any) (*Request, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Request:
		return x, nil
	case Request:
		return &x, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("reqsvc: cannot build a request from %T", v)
	}

	req := &Request{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		section := field.Tag.Get("req")
		if section == "" || section == "-" {
			continue
		}
		fv := rv.Field(i)

		var err error
		switch section {
		case "params":
			req.Params, err = toValues(fv)
		case "query":
			req.Query, err = toValues(fv)
		case "headers":
			req.Headers, err = toValues(fv)
		case "body":
			if !isNilValue(fv) {
				req.Body = fv.Interface()
			}
		case "method":
			req.Method, err = toString(fv)
		case "url":
			req.URL, err = toString(fv)
		case "path":
			req.Path, err = toString(fv)
		default:
			err = fmt.Errorf("unknown section %q", section)
		}
		if err != nil {
			return nil, fmt.Errorf("reqsvc: field %s: %w", field.Name, err)
		}
	}
	return req, nil
}

// toValues converts a map or a struct into Values.
func toValues(fv reflect.Value) (Values, error) {
	if isNilValue(fv) {
		return nil, nil
	}
	if v, ok := fv.Interface().(Values); ok {
		return v, nil
	}
	for fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface {
		fv = fv.Elem()
	}

	switch fv.Kind() {
	case reflect.Map:
		if fv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key must be a string, got %s", fv.Type().Key())
		}
		out := make(Values, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		encoded := url.Values{}
		if err := schemaEncoder.Encode(fv.Interface(), encoded); err != nil {
			return nil, err
		}
		out := make(Values, len(encoded))
		for k, vs := range encoded {
			if len(vs) == 1 {
				out[k] = vs[0]
			} else {
				out[k] = vs
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %s into values", fv.Type())
}

func toString(fv reflect.Value) (string, error) {
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return "", nil
		}
		fv = fv.Elem()
	}
	if fv.Kind() != reflect.String {
		return "", fmt.Errorf("expected a string, got %s", fv.Type())
	}
	return fv.String(), nil
}

func isNilValue(fv reflect.Value) bool {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return fv.IsNil()
	}
	return false
}
