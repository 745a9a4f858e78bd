package reqsvc

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Target identifies an operation.
//
// A target of the form "METHOD /path/:param" carries the HTTP method and
// the path pattern of the operation, e.g. "GET /items/:id". Any other string
// is an opaque key that only the handler knows how to interpret.
type Target string

var targetPattern = regexp.MustCompile(`^[A-Z]+\s`)

// Split returns the method and the location of a "METHOD location" target.
// It reports false for targets that are lookup keys only.
func (t Target) Split() (method, location string, ok bool) {
	s := string(t)
	if !targetPattern.MatchString(s) {
		return "", "", false
	}
	fields := strings.Fields(s)
	method = fields[0]
	if len(fields) > 1 {
		location = fields[1]
	}
	return method, location, true
}

// Values holds path params, query params or headers.
// A nil value is skipped. Slice values produce repeated query parameters.
type Values map[string]any

// Request describes a single call. A nil *Request is a call without arguments.
type Request struct {
	Target  Target `json:"target,omitempty"`
	Method  string `json:"method,omitempty"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
	Params  Values `json:"params,omitempty"`
	Query   Values `json:"query,omitempty"`
	Headers Values `json:"headers,omitempty"`
	Body    any    `json:"body,omitempty"`
}

// AliasMap maps caller-chosen method names to targets.
type AliasMap map[string]Target

// StringValues converts v into a map of strings.
// Strings are kept as is, nil values are dropped and every other value is
// JSON-encoded. It returns nil for a nil map.
func StringValues(v Values) map[string]string {
	if v == nil {
		return nil
	}
	out := make(map[string]string, len(v))
	for key, value := range v {
		if isNil(value) {
			continue
		}
		if s, ok := value.(string); ok {
			out[key] = s
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			out[key] = stringify(value)
			continue
		}
		out[key] = string(data)
	}
	return out
}

// sortedKeys returns the keys of v in lexical order.
func sortedKeys(v Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringify returns the string form of a scalar value.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(v)
	}
}

// expand returns the string forms of v, one per element for slices.
func expand(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []byte:
		return []string{string(x)}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{stringify(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if isNil(elem) {
			continue
		}
		out = append(out, stringify(elem))
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
