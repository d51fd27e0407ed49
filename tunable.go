// FILE: lixenwraith/tunable/tunable.go
package tunable

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag that marks tunable fields and tunable containers.
const TagName = "tunable"

const (
	tagContains = "contains"
	tagInline   = "inline"
	tagSkip     = "-"
)

// Context restricts where a tunable is presented.
type Context string

const (
	ContextBoth  Context = "both"
	ContextGUI   Context = "gui"
	ContextNoGUI Context = "nogui"
)

// Tunable is the annotation payload attached to a field or getter.
type Tunable struct {
	// Name overrides the member name used in paths, flags and presets
	Name string `mapstructure:"name"`

	// Description is the human-readable label shown to the user
	Description string `mapstructure:"description"`

	// Gravity orders tunables inside a dialog, lower first
	Gravity float64 `mapstructure:"gravity"`

	// Groups nests the tunable in titled groups, outermost first
	Groups []string `mapstructure:"groups"`

	Tooltip   string  `mapstructure:"tooltip"`
	DependsOn string  `mapstructure:"dependsOn"`
	Params    string  `mapstructure:"params"`
	Format    string  `mapstructure:"format"`
	Context   Context `mapstructure:"context"`
	Required  bool    `mapstructure:"required"`
}

// Label returns the description, falling back to the name.
func (t Tunable) Label() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Name
}

// ParseTunable decodes tag options of the form
// "description='Edge weight, normalized',gravity=2,groups=Filter|Edges,required".
// Bare words are boolean flags. Unknown keys are an error.
func ParseTunable(tag string) (Tunable, error) {
	opts, err := tagOptions(tag)
	if err != nil {
		return Tunable{}, err
	}

	var t Tunable
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &t,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToSliceHookFunc("|"),
	})
	if err != nil {
		return Tunable{}, fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(opts); err != nil {
		return Tunable{}, fmt.Errorf("invalid tunable tag %q: %w", tag, err)
	}

	switch t.Context {
	case "":
		t.Context = ContextBoth
	case ContextBoth, ContextGUI, ContextNoGUI:
	default:
		return Tunable{}, fmt.Errorf("invalid tunable context %q", t.Context)
	}

	return t, nil
}

// tagOptions splits a tag into key/value options honoring single quotes.
func tagOptions(tag string) (map[string]any, error) {
	parts, err := splitTag(tag)
	if err != nil {
		return nil, err
	}

	opts := make(map[string]any, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty option name in tag %q", tag)
		}
		if _, dup := opts[key]; dup {
			return nil, fmt.Errorf("duplicate option %q in tag %q", key, tag)
		}

		if !hasValue {
			opts[key] = true
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
			value = value[1 : len(value)-1]
		}
		opts[key] = value
	}

	return opts, nil
}

func splitTag(tag string) ([]string, error) {
	var parts []string
	var b strings.Builder
	quoted := false

	for _, r := range tag {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in tag %q", tag)
	}

	return append(parts, b.String()), nil
}

// MethodAnnotation declares a method-level tunable or title provider.
// Go has no method annotations, so subjects list them through Annotated.
type MethodAnnotation struct {
	// Method is the exported method name on the subject's pointer type
	Method string

	// Tag holds tunable options, same grammar as the struct tag
	Tag string

	// ProvidesTitle marks Method as the subject's title provider
	ProvidesTitle bool
}

// TunableMethod annotates a Get<Root> method; Set<Root> must exist.
func TunableMethod(getter, tag string) MethodAnnotation {
	return MethodAnnotation{Method: getter, Tag: tag}
}

// TitleMethod annotates a no-argument method returning string as the subject's title.
func TitleMethod(name string) MethodAnnotation {
	return MethodAnnotation{Method: name, ProvidesTitle: true}
}

// Annotated is implemented by subjects exposing method tunables or a title provider.
type Annotated interface {
	Annotations() []MethodAnnotation
}
