package reqsvc

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

// OperationMetadata describes a declared operation.
type OperationMetadata struct {
	Target   Target
	Method   string
	Path     string
	Request  reflect.Type
	Response reflect.Type
}

// Operation is a declared operation, typically an *Endpoint.
type Operation interface {
	Metadata() *OperationMetadata
}

// Schema is the catalogue of operations a Service is expected to serve,
// keyed by target.
type Schema struct {
	mu     sync.RWMutex
	ops    map[Target]Operation
	logger *slog.Logger
}

// NewSchema returns an empty catalogue.
func NewSchema() *Schema {
	return &Schema{
		ops: make(map[Target]Operation),
	}
}

// WithLogger sets a custom logger for the schema.
// If not set, slog.Default() will be used.
func (s *Schema) WithLogger(logger *slog.Logger) *Schema {
	s.logger = logger
	return s
}

// Register declares operations. If an operation is already registered for
// the same target, it is replaced and a warning is logged.
func (s *Schema) Register(ops ...Operation) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		target := op.Metadata().Target
		if _, exists := s.ops[target]; exists {
			logger := s.logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("duplicate operation registration",
				slog.String("target", string(target)))
		}
		s.ops[target] = op
	}
	return s
}

// Lookup returns the metadata of the operation declared for target.
func (s *Schema) Lookup(target Target) (*OperationMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[target]
	if !ok {
		return nil, false
	}
	return op.Metadata(), true
}

// Targets returns the declared targets in lexical order.
func (s *Schema) Targets() []Target {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make([]Target, 0, len(s.ops))
	for t := range s.ops {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// CheckAliases reports every alias bound to an undeclared target.
func (s *Schema) CheckAliases(aliases AliasMap) error {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		target := aliases[name]
		if _, ok := s.Lookup(target); !ok {
			errs = append(errs, fmt.Errorf("alias %q: undeclared target %q", name, target))
		}
	}
	return errors.Join(errs...)
}
