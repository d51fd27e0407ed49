// FILE: lixenwraith/tunable/preset.go
package tunable

import (
	"os"
	"path/filepath"
	"strings"
)

// PresetDiscoveryOptions controls where FindPreset looks for a preset file.
// An explicit location (CLIFlag in args, then EnvVar) short-circuits the search;
// otherwise Name plus each of Extensions is tried in every search directory:
// Paths, the working directory when UseCurrentDir, then the XDG config
// directories when UseXDG.
type PresetDiscoveryOptions struct {
	Name          string
	Extensions    []string
	Paths         []string
	EnvVar        string
	CLIFlag       string
	UseXDG        bool
	UseCurrentDir bool
}

// DefaultPresetOptions derives discovery options from an application name:
// "force-layout" reads FORCE_LAYOUT_PRESET and looks for force-layout.{toml,yaml,yml,json}.
func DefaultPresetOptions(appName string) PresetDiscoveryOptions {
	envName := strings.ToUpper(strings.ReplaceAll(appName, "-", "_"))
	return PresetDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        envName + "_PRESET",
		CLIFlag:       "--preset",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// FindPreset returns the preset file to apply, or "" when there is none.
// Explicit locations are returned as given, existing or not.
func FindPreset(opts PresetDiscoveryOptions, args []string) string {
	if path, ok := explicitPreset(opts, args); ok {
		return path
	}
	for _, candidate := range presetCandidates(opts) {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

func explicitPreset(opts PresetDiscoveryOptions, args []string) (string, bool) {
	if flag := opts.CLIFlag; flag != "" {
		for i := 0; i < len(args); i++ {
			if value, found := strings.CutPrefix(args[i], flag+"="); found {
				return value, true
			}
			if args[i] == flag && i+1 < len(args) {
				return args[i+1], true
			}
		}
	}
	if opts.EnvVar == "" {
		return "", false
	}
	path := os.Getenv(opts.EnvVar)
	return path, path != ""
}

// presetCandidates lists every file FindPreset would try, in order.
func presetCandidates(opts PresetDiscoveryOptions) []string {
	dirs := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if opts.UseXDG {
		dirs = append(dirs, xdgPresetDirs(opts.Name)...)
	}

	candidates := make([]string, 0, len(dirs)*len(opts.Extensions))
	for _, dir := range dirs {
		for _, ext := range opts.Extensions {
			candidates = append(candidates, filepath.Join(dir, opts.Name+ext))
		}
	}
	return candidates
}

// xdgPresetDirs follows the XDG base directory lookup for config files.
func xdgPresetDirs(appName string) []string {
	var dirs []string

	home := os.Getenv("XDG_CONFIG_HOME")
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".config")
		}
	}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, appName))
	}

	system := filepath.SplitList(os.Getenv("XDG_CONFIG_DIRS"))
	if len(system) == 0 {
		system = []string{"/etc/xdg", "/etc"}
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}
