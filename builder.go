// FILE: lixenwraith/tunable/builder.go
package tunable

import (
	"errors"
	"fmt"
	"log/slog"
)

// ValidatorFunc checks a built Interceptor, e.g. that required factories are present.
type ValidatorFunc[H Handler] func(i *Interceptor[H]) error

// Builder provides a fluent interface for building interceptors
type Builder[H Handler] struct {
	factories  []HandlerFactory[H]
	strict     bool
	logger     *slog.Logger
	err        error
	validators []ValidatorFunc[H]
}

// NewBuilder creates a new interceptor builder
func NewBuilder[H Handler]() *Builder[H] {
	return &Builder[H]{
		validators: make([]ValidatorFunc[H], 0),
	}
}

// WithFactories appends factories in dispatch order
func (b *Builder[H]) WithFactories(factories ...HandlerFactory[H]) *Builder[H] {
	for _, f := range factories {
		if f == nil {
			b.err = errors.Join(b.err, fmt.Errorf("%w: nil handler factory", ErrInvalidArgument))
			continue
		}
		b.factories = append(b.factories, f)
	}
	return b
}

// WithStrict makes discovery failures fatal instead of logged
func (b *Builder[H]) WithStrict(strict bool) *Builder[H] {
	b.strict = strict
	return b
}

// WithLogger sets the logger used for lenient discovery failures
func (b *Builder[H]) WithLogger(logger *slog.Logger) *Builder[H] {
	b.logger = logger
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder[H]) WithValidator(fn ValidatorFunc[H]) *Builder[H] {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Interceptor with all specified options
func (b *Builder[H]) Build() (*Interceptor[H], error) {
	if b.err != nil {
		return nil, b.err
	}

	i := New[H]()
	i.SetStrict(b.strict)
	i.SetLogger(b.logger)
	for _, f := range b.factories {
		i.AddFactory(f, nil)
	}

	for _, validator := range b.validators {
		if err := validator(i); err != nil {
			return nil, fmt.Errorf("interceptor validation failed: %w", err)
		}
	}

	return i, nil
}

// MustBuild is like Build but panics on error
func (b *Builder[H]) MustBuild() *Interceptor[H] {
	i, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("interceptor build failed: %v", err))
	}
	return i
}

// RequireFactories is a validator failing when no factory is registered.
func RequireFactories[H Handler](i *Interceptor[H]) error {
	if len(i.Factories()) == 0 {
		return fmt.Errorf("%w: no handler factories registered", ErrInvalidArgument)
	}
	return nil
}
