// File: lixenwraith/tunable/doc.go

// Package tunable discovers the configurable parameters ("tunables") of plugin
// objects and builds handlers that read and write them, so a host can generate
// dialogs, command lines and preset files without knowing the plugin types.
//
// Features:
//   - Struct tag annotation of tunable fields and nested tunable containers
//   - Getter/setter method tunables and a title provider declared through Annotated
//   - Ordered, pluggable handler factories: the first one to accept a member wins
//   - Per-subject handler cache with explicit release
//   - Strict or lenient handling of discovery failures
//   - Value layering from TOML, YAML and JSON presets, environment and CLI arguments
//   - pflag generation and binding, atomic preset saving
//
// Quick Start:
//
//	type Filter struct {
//	    Threshold float64       `tunable:"description='Minimum weight',gravity=1,groups=Filter"`
//	    Timeout   time.Duration `tunable:"description=Timeout"`
//	    Layout    LayoutOptions `tunable:"contains"`
//	}
//
//	func (f *Filter) Annotations() []tunable.MethodAnnotation {
//	    return []tunable.MethodAnnotation{tunable.TitleMethod("Title")}
//	}
//
//	interceptor := tunable.NewBuilder[tunable.Handler]().
//	    WithFactories(tunable.NewBasicFactory()).
//	    MustBuild()
//
//	handlers, err := interceptor.Handlers(&Filter{})
//
// Tag grammar:
//
//	tunable:"key=value,key='value, with comma',flag"
//	tunable:"contains"          nested container, path segment is the field name
//	tunable:"contains,name=x"   nested container with path segment x
//	tunable:"contains,inline"   nested container adding no path segment
//	tunable:"-"                 ignored
//
// Keys: name, description, gravity, groups (| separated), tooltip, dependsOn,
// params, format, context (both|gui|nogui), required.
//
// Thread Safety:
// The factory registry and the handler cache are guarded by a read-write mutex.
// Concurrent scans of the same subject are not coordinated; the first list
// committed to the cache is the one every later call returns.
package tunable
