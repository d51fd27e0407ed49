// FILE: lixenwraith/tunable/mutator_test.go
package tunable

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMutator(t *testing.T) *Mutator {
	t.Helper()
	return NewMutator(newTestInterceptor(t))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestApply tests applying value maps
func TestApply(t *testing.T) {
	t.Run("NestedAndDotted", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{}

		err := m.Apply(s, map[string]any{
			"Threshold": 0.75,
			"Timeout":   "3s",
			"layout": map[string]any{
				"Iterations": int64(50),
			},
			"layout.Spacing": "1.5",
			"Label":          "result",
		})
		require.NoError(t, err)

		assert.Equal(t, 0.75, s.Threshold)
		assert.Equal(t, 3*time.Second, s.Timeout)
		assert.Equal(t, 50, s.Layout.Iterations)
		assert.Equal(t, 1.5, s.Layout.Spacing)
		assert.Equal(t, "result", s.label)
	})

	t.Run("UnknownPathsIgnored", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{Name: "kept"}

		err := m.Apply(s, map[string]any{
			"Unknown": 1,
			"Skipped": 5,
			"Plain":   5,
			"layout":  map[string]any{"Missing": true},
		})
		require.NoError(t, err)
		assert.Equal(t, "kept", s.Name)
		assert.Zero(t, s.Skipped)
		assert.Zero(t, s.Plain)
	})

	t.Run("ErrorsJoined", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{}

		err := m.Apply(s, map[string]any{
			"Threshold": "high",
			"Timeout":   "later",
			"Name":      "applied",
		})
		require.Error(t, err)
		assert.ErrorContains(t, err, "tunable Threshold")
		assert.ErrorContains(t, err, "tunable Timeout")
		assert.Equal(t, "applied", s.Name)
	})

	t.Run("EmptyValues", func(t *testing.T) {
		m := newTestMutator(t)
		assert.NoError(t, m.Apply(&testSubject{}, nil))
	})

	t.Run("InvalidSubject", func(t *testing.T) {
		m := newTestMutator(t)
		err := m.Apply(testSubject{}, map[string]any{"Name": "x"})
		assert.ErrorIs(t, err, ErrInvalidSubject)
	})
}

// TestSet tests single-path writes
func TestSet(t *testing.T) {
	m := newTestMutator(t)
	s := &testSubject{}

	require.NoError(t, m.Set(s, "Name", "alpha"))
	assert.Equal(t, "alpha", s.Name)

	err := m.Set(s, "nope", 1)
	assert.ErrorIs(t, err, ErrUnknownPath)

	h, err := m.Handler(s, "layout.Spacing")
	require.NoError(t, err)
	assert.Equal(t, "Spacing", h.Name())
}

// TestApplyFile tests preset file loading in each format
func TestApplyFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"TOML", "preset.toml", `
Threshold = 0.6
Timeout = "10s"
Label = "from file"

[layout]
Iterations = 25
Spacing = 2.5
`},
		{"YAML", "preset.yaml", `
Threshold: 0.6
Timeout: 10s
Label: from file
layout:
  Iterations: 25
  Spacing: 2.5
`},
		{"JSON", "preset.json", `{
  "Threshold": 0.6,
  "Timeout": "10s",
  "Label": "from file",
  "layout": {"Iterations": 25, "Spacing": 2.5}
}`},
		{"DetectedJSON", "preset", `{"Threshold": 0.6, "Timeout": "10s", "Label": "from file", "layout": {"Iterations": 25, "Spacing": 2.5}}`},
		{"DetectedTOML", "preset.conf", "Threshold = 0.6\nTimeout = \"10s\"\nLabel = \"from file\"\n[layout]\nIterations = 25\nSpacing = 2.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMutator(t)
			s := &testSubject{}
			path := writeFile(t, tt.file, tt.content)

			require.NoError(t, m.ApplyFile(s, path))
			assert.Equal(t, 0.6, s.Threshold)
			assert.Equal(t, 10*time.Second, s.Timeout)
			assert.Equal(t, "from file", s.label)
			assert.Equal(t, 25, s.Layout.Iterations)
			assert.Equal(t, 2.5, s.Layout.Spacing)
		})
	}

	t.Run("NotFound", func(t *testing.T) {
		m := newTestMutator(t)
		err := m.ApplyFile(&testSubject{}, filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorIs(t, err, ErrPresetNotFound)
	})

	t.Run("InvalidTOML", func(t *testing.T) {
		m := newTestMutator(t)
		path := writeFile(t, "bad.toml", "Threshold = = 1")
		err := m.ApplyFile(&testSubject{}, path)
		assert.ErrorContains(t, err, "failed to parse TOML")
	})

	t.Run("UndetectableFormat", func(t *testing.T) {
		m := newTestMutator(t)
		path := writeFile(t, "preset.txt", "key: [unclosed")
		err := m.ApplyFile(&testSubject{}, path)
		assert.ErrorIs(t, err, ErrPresetFormat)
	})
}

// TestApplyEnv tests environment overrides
func TestApplyEnv(t *testing.T) {
	t.Run("DefaultTransform", func(t *testing.T) {
		t.Setenv("LAYOUT_THRESHOLD", "0.9")
		t.Setenv("LAYOUT_LAYOUT_ITERATIONS", "12")
		t.Setenv("LAYOUT_LABEL", `"quoted"`)

		m := newTestMutator(t)
		s := &testSubject{}
		require.NoError(t, m.ApplyEnv(s, "LAYOUT_"))

		assert.Equal(t, 0.9, s.Threshold)
		assert.Equal(t, 12, s.Layout.Iterations)
		assert.Equal(t, "quoted", s.label)
	})

	t.Run("CustomTransform", func(t *testing.T) {
		t.Setenv("CUSTOM_Name", "custom")

		m := newTestMutator(t)
		s := &testSubject{}
		opts := DefaultLoadOptions()
		opts.Sources = []Source{SourceEnv}
		opts.EnvTransform = func(path string) string { return "CUSTOM_" + path }

		require.NoError(t, m.LoadWithOptions(s, "", nil, opts))
		assert.Equal(t, "custom", s.Name)
	})

	t.Run("InvalidValue", func(t *testing.T) {
		t.Setenv("BAD_TIMEOUT", "forever")

		m := newTestMutator(t)
		err := m.ApplyEnv(&testSubject{}, "BAD_")
		assert.ErrorContains(t, err, "tunable Timeout")
	})
}

// TestParseArgs tests command-line argument parsing
func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected map[string]any
	}{
		{"EqualsForm", []string{"--Name=alpha"}, map[string]any{"Name": "alpha"}},
		{"SpaceForm", []string{"--Name", "alpha"}, map[string]any{"Name": "alpha"}},
		{"BareFlag", []string{"--enabled", "--Name=x"}, map[string]any{"enabled": "true", "Name": "x"}},
		{"Nested", []string{"--layout.Iterations=5"}, map[string]any{"layout": map[string]any{"Iterations": "5"}}},
		{"PositionalSkipped", []string{"run", "--", "--Name=x"}, map[string]any{"Name": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("InvalidKeySegment", func(t *testing.T) {
		_, err := parseArgs([]string{"--layout..Iterations=5"})
		assert.Error(t, err)
	})
}

// TestLoadWithOptions tests source precedence
func TestLoadWithOptions(t *testing.T) {
	path := writeFile(t, "preset.toml", "Name = \"file\"\nThreshold = 0.1\nTimeout = \"1s\"\n")
	t.Setenv("PREC_NAME", "env")
	t.Setenv("PREC_THRESHOLD", "0.2")
	args := []string{"--Name=cli"}

	t.Run("DefaultPrecedence", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{}
		opts := DefaultLoadOptions()
		opts.EnvPrefix = "PREC_"

		require.NoError(t, m.LoadWithOptions(s, path, args, opts))
		assert.Equal(t, "cli", s.Name)
		assert.Equal(t, 0.2, s.Threshold)
		assert.Equal(t, time.Second, s.Timeout)
	})

	t.Run("FileFirst", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{}
		opts := LoadOptions{Sources: []Source{SourceFile, SourceCLI, SourceEnv}, EnvPrefix: "PREC_"}

		require.NoError(t, m.LoadWithOptions(s, path, args, opts))
		assert.Equal(t, "file", s.Name)
		assert.Equal(t, 0.1, s.Threshold)
	})

	t.Run("MissingFileNotFatal", func(t *testing.T) {
		m := newTestMutator(t)
		s := &testSubject{}
		opts := DefaultLoadOptions()
		opts.EnvPrefix = "PREC_"

		err := m.LoadWithOptions(s, filepath.Join(t.TempDir(), "none.toml"), args, opts)
		assert.ErrorIs(t, err, ErrPresetNotFound)
		assert.Equal(t, "cli", s.Name)
		assert.Equal(t, 0.2, s.Threshold)
	})

	t.Run("BrokenFileFatal", func(t *testing.T) {
		m := newTestMutator(t)
		broken := writeFile(t, "broken.toml", "Name = ")
		err := m.LoadWithOptions(&testSubject{}, broken, args, DefaultLoadOptions())
		assert.ErrorContains(t, err, "failed to parse TOML")
	})
}
