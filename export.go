package reqsvc

import "reflect"

// ExportedOperation contains metadata about a declared operation for
// documentation and tooling.
type ExportedOperation struct {
	Target     Target
	HTTPMethod string
	Path       string
	Request    reflect.Type
	Response   reflect.Type
}

// ExportOperations returns all declared operations keyed by target.
func (s *Schema) ExportOperations() map[Target]ExportedOperation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exported := make(map[Target]ExportedOperation, len(s.ops))
	for k, v := range s.ops {
		meta := v.Metadata()
		exported[k] = ExportedOperation{
			Target:     k,
			HTTPMethod: meta.Method,
			Path:       meta.Path,
			Request:    meta.Request,
			Response:   meta.Response,
		}
	}
	return exported
}
