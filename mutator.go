// FILE: lixenwraith/tunable/mutator.go
package tunable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Source represents where tunable values come from, used to define load precedence
type Source string

const (
	// SourceFile represents values loaded from a preset file
	SourceFile Source = "file"
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "cli"
)

// EnvTransformFunc converts a tunable path to an environment variable name
type EnvTransformFunc func(path string) string

// LoadOptions configures how values are layered onto a subject
type LoadOptions struct {
	// Sources defines the precedence order (first = highest priority)
	// Default: [SourceCLI, SourceEnv, SourceFile]
	Sources []Source

	// EnvPrefix is prepended to environment variable names
	// Example: "LAYOUT_" transforms "filter.threshold" to "LAYOUT_FILTER_THRESHOLD"
	EnvPrefix string

	// EnvTransform customizes how paths map to environment variables
	EnvTransform EnvTransformFunc
}

// DefaultLoadOptions returns the standard load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Sources: []Source{SourceCLI, SourceEnv, SourceFile},
	}
}

// Mutator writes values into a subject's tunables through its handlers.
type Mutator struct {
	interceptor *Interceptor[Handler]
}

// NewMutator creates a Mutator using i for handler discovery.
func NewMutator(i *Interceptor[Handler]) *Mutator {
	return &Mutator{interceptor: i}
}

// Interceptor returns the interceptor backing m.
func (m *Mutator) Interceptor() *Interceptor[Handler] {
	return m.interceptor
}

// Apply sets tunables from values. Nested maps address container paths;
// dotted keys are accepted too. Unknown paths are ignored.
// Handlers are written in discovery order; failures are joined.
func (m *Mutator) Apply(subject any, values map[string]any) error {
	handlers, err := m.interceptor.Handlers(subject)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		known[h.Path()] = true
	}

	found := make(map[string]any)
	var collect func(prefix string, data map[string]any)
	collect = func(prefix string, data map[string]any) {
		for key, value := range data {
			fullPath := key
			if prefix != "" {
				fullPath = prefix + "." + key
			}
			if known[fullPath] {
				found[fullPath] = value
			} else if subMap, isMap := value.(map[string]any); isMap {
				collect(fullPath, subMap)
			}
		}
	}
	collect("", values)

	var errs []error
	for _, h := range handlers {
		value, ok := found[h.Path()]
		if !ok {
			continue
		}
		if err := h.Set(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Set writes a single tunable addressed by its path.
func (m *Mutator) Set(subject any, path string, value any) error {
	h, err := m.Handler(subject, path)
	if err != nil {
		return err
	}
	return h.Set(value)
}

// Handler finds subject's handler for path.
func (m *Mutator) Handler(subject any, path string) (Handler, error) {
	handlers, err := m.interceptor.Handlers(subject)
	if err != nil {
		return nil, err
	}
	for _, h := range handlers {
		if h.Path() == path {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
}

// LoadWithOptions layers file, environment and CLI values onto subject,
// lowest precedence first. A missing preset file is reported but not fatal
// to the remaining sources.
func (m *Mutator) LoadWithOptions(subject any, filePath string, args []string, opts LoadOptions) error {
	var loadErrors []error

	for i := len(opts.Sources) - 1; i >= 0; i-- {
		switch opts.Sources[i] {
		case SourceFile:
			if filePath != "" {
				if err := m.ApplyFile(subject, filePath); err != nil {
					if !errors.Is(err, ErrPresetNotFound) {
						return err
					}
					loadErrors = append(loadErrors, err)
				}
			}

		case SourceEnv:
			if err := m.applyEnv(subject, opts); err != nil {
				loadErrors = append(loadErrors, err)
			}

		case SourceCLI:
			if len(args) > 0 {
				if err := m.ApplyArgs(subject, args); err != nil {
					loadErrors = append(loadErrors, err)
				}
			}
		}
	}

	return errors.Join(loadErrors...)
}

// ApplyFile reads a TOML, YAML or JSON preset and applies it.
func (m *Mutator) ApplyFile(subject any, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPresetNotFound, path)
		}
		return fmt.Errorf("failed to read preset file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
	}

	values := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse TOML preset file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&values); err != nil {
			return fmt.Errorf("failed to parse JSON preset file '%s': %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse YAML preset file '%s': %w", path, err)
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrPresetFormat, path)
	}

	return m.Apply(subject, values)
}

// ApplyEnv sets tunables from PREFIX_PATH_SEGMENTS environment variables.
func (m *Mutator) ApplyEnv(subject any, prefix string) error {
	opts := DefaultLoadOptions()
	opts.EnvPrefix = prefix
	return m.applyEnv(subject, opts)
}

func (m *Mutator) applyEnv(subject any, opts LoadOptions) error {
	transform := opts.EnvTransform
	if transform == nil {
		transform = defaultEnvTransform(opts.EnvPrefix)
	}

	handlers, err := m.interceptor.Handlers(subject)
	if err != nil {
		return err
	}

	var errs []error
	for _, h := range handlers {
		if value, exists := os.LookupEnv(transform(h.Path())); exists {
			if err := h.Set(parseValue(value)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ApplyArgs sets tunables from "--path=value", "--path value" and bare "--flag" arguments.
func (m *Mutator) ApplyArgs(subject any, args []string) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	return m.Apply(subject, parsed)
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.ReplaceAll(path, ".", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// parseValue strips surrounding quotes; conversion is left to the handler
func parseValue(s string) any {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseArgs processes command-line arguments into a nested map structure.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" argument if used as a separator
			i++
			continue
		}

		var keyPath string
		var valueStr string

		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			keyPath = parts[0]
			valueStr = parts[1]
			i++
		} else {
			keyPath = argContent
			// Boolean flag when the next arg is another flag or there is none
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" {
			continue
		}

		for _, segment := range strings.Split(keyPath, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, keyPath)
			}
		}

		// Always store as a string, the handler converts
		setNestedValue(result, keyPath, valueStr)
	}

	return result, nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// JSON first, YAML accepts it too
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	return ""
}
