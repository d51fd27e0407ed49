// FILE: lixenwraith/tunable/flags.go
package tunable

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// FlagSet creates one flag per tunable of subject, named by path, with the
// current value as default and the description as usage.
func (m *Mutator) FlagSet(subject any) (*pflag.FlagSet, error) {
	handlers, err := m.interceptor.Handlers(subject)
	if err != nil {
		return nil, err
	}

	name := "tunables"
	if owner, err := subjectValue(subject); err == nil {
		name = typeName(owner)
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	for _, h := range handlers {
		AddFlag(fs, h)
	}
	return fs, nil
}

// AddFlag defines a flag for h on fs unless one with the same name exists.
func AddFlag(fs *pflag.FlagSet, h Handler) {
	path := h.Path()
	if fs.Lookup(path) != nil {
		return
	}

	usage := h.Tunable().Label()
	if usage == "" {
		usage = fmt.Sprintf("Tunable: %s", path)
	}

	value, err := h.Get()
	if err != nil {
		value = nil
	}

	switch v := value.(type) {
	case bool:
		fs.Bool(path, v, usage)
	case int:
		fs.Int(path, v, usage)
	case int64:
		fs.Int64(path, v, usage)
	case float64:
		fs.Float64(path, v, usage)
	case string:
		fs.String(path, v, usage)
	case time.Duration:
		fs.Duration(path, v, usage)
	case []string:
		fs.StringSlice(path, v, usage)
	case []int:
		fs.IntSlice(path, v, usage)
	default:
		// Other types travel as text and are converted by the handler
		def := ""
		if p := presetValue(v); p != nil {
			def = fmt.Sprintf("%v", p)
		}
		fs.String(path, def, usage)
	}
}

// BindFlags applies the flags of fs that were set on the command line.
func (m *Mutator) BindFlags(subject any, fs *pflag.FlagSet) error {
	handlers, err := m.interceptor.Handlers(subject)
	if err != nil {
		return err
	}

	byPath := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		byPath[h.Path()] = h
	}

	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		h, ok := byPath[f.Name]
		if !ok {
			return
		}

		var value any = f.Value.String()
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			value = sv.GetSlice()
		}
		if err := h.Set(value); err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", f.Name, err))
		}
	})

	return errors.Join(errs...)
}
