// Package emitter defines the output interface for pass results.
package emitter

import (
	"context"

	"github.com/yairfalse/warden/pkg/resource"
)

// Emitter outputs pass results to a backend.
type Emitter interface {
	// Emit sends a pass result to the backend.
	Emit(ctx context.Context, result resource.PassResult) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, result resource.PassResult) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Nop discards every result.
type Nop struct{}

// Emit does nothing.
func (Nop) Emit(context.Context, resource.PassResult) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
