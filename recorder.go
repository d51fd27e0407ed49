// FILE: lixenwraith/tunable/recorder.go
package tunable

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Recorder reads tunable values back out of a subject.
type Recorder struct {
	interceptor *Interceptor[Handler]
}

// NewRecorder creates a Recorder using i for handler discovery.
func NewRecorder(i *Interceptor[Handler]) *Recorder {
	return &Recorder{interceptor: i}
}

// Record returns subject's current tunable values nested by path.
func (r *Recorder) Record(subject any) (map[string]any, error) {
	handlers, err := r.interceptor.Handlers(subject)
	if err != nil {
		return nil, err
	}

	nested := make(map[string]any)
	for _, h := range handlers {
		value, err := h.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to record tunable %s: %w", h.Path(), err)
		}
		setNestedValue(nested, h.Path(), value)
	}
	return nested, nil
}

// Save writes subject's values as a preset file atomically. The format
// follows the extension: .yaml/.yml, .json, anything else is TOML.
func (r *Recorder) Save(subject any, path string) error {
	handlers, err := r.interceptor.Handlers(subject)
	if err != nil {
		return err
	}

	nested := make(map[string]any)
	for _, h := range handlers {
		value, err := h.Get()
		if err != nil {
			return fmt.Errorf("failed to record tunable %s: %w", h.Path(), err)
		}
		if value = presetValue(value); value != nil {
			setNestedValue(nested, h.Path(), value)
		}
	}

	var data []byte
	switch detectFileFormat(path) {
	case "yaml":
		if data, err = yaml.Marshal(nested); err != nil {
			return fmt.Errorf("failed to marshal preset data to YAML: %w", err)
		}
	case "json":
		if data, err = json.MarshalIndent(nested, "", "  "); err != nil {
			return fmt.Errorf("failed to marshal preset data to JSON: %w", err)
		}
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
			return fmt.Errorf("failed to marshal preset data to TOML: %w", err)
		}
		data = buf.Bytes()
	}

	return atomicWriteFile(path, data)
}

// Describe returns a formatted listing of subject's tunables and current values.
func (r *Recorder) Describe(subject any) (string, error) {
	handlers, err := r.interceptor.Handlers(subject)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if title, ok, err := r.interceptor.Title(subject); err == nil && ok {
		b.WriteString(fmt.Sprintf("%s\n", title))
	}
	for _, h := range handlers {
		value, err := h.Get()
		if err != nil {
			value = fmt.Sprintf("<error: %v>", err)
		}
		t := h.Tunable()
		b.WriteString(fmt.Sprintf("  %s (%s) = %v\n", h.Path(), h.Type(), value))
		if t.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", t.Description))
		}
		if len(t.Groups) > 0 {
			b.WriteString(fmt.Sprintf("    groups: %s\n", strings.Join(t.Groups, " > ")))
		}
	}
	return b.String(), nil
}

// presetValue turns values without a natural file representation into text.
func presetValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v
	case time.Duration:
		return v.String()
	case url.URL:
		return v.String()
	case *url.URL:
		if v == nil {
			return nil
		}
		return v.String()
	case net.IPNet:
		return v.String()
	case *net.IPNet:
		if v == nil {
			return nil
		}
		return v.String()
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(text)
	}

	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
	}
	return value
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
