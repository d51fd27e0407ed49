// FILE: lixenwraith/tunable/handler.go
package tunable

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Handler mediates read/write access to one tunable.
type Handler interface {
	// Name is the tunable name: the tag's name option or the Go member name
	Name() string

	// Path is Name prefixed by the names of enclosing containers, dot separated
	Path() string

	Tunable() Tunable
	Member() Member
	Type() reflect.Type

	Get() (any, error)

	// Set converts value to Type and stores it
	Set(value any) error
}

// BasicHandler is the Handler produced by BasicFactory.
type BasicHandler struct {
	member  Member
	tunable Tunable
	path    string
}

// NewBasicHandler wraps member; the path is filled in by the interceptor.
func NewBasicHandler(m Member, t Tunable) *BasicHandler {
	return &BasicHandler{member: m, tunable: t}
}

func (h *BasicHandler) Name() string {
	if h.tunable.Name != "" {
		return h.tunable.Name
	}
	return h.member.Name()
}

func (h *BasicHandler) Path() string {
	if h.path == "" {
		return h.Name()
	}
	return h.path
}

// SetPath is called once by the scanner with the container prefix applied.
func (h *BasicHandler) SetPath(path string) { h.path = path }

func (h *BasicHandler) Tunable() Tunable   { return h.tunable }
func (h *BasicHandler) Member() Member     { return h.member }
func (h *BasicHandler) Type() reflect.Type { return h.member.Type() }
func (h *BasicHandler) Get() (any, error)  { return h.member.Get() }

func (h *BasicHandler) Set(value any) error {
	converted, err := convert(value, h.member.Type())
	if err != nil {
		return fmt.Errorf("tunable %s: %w", h.Path(), err)
	}
	if err := h.member.Set(converted); err != nil {
		return fmt.Errorf("tunable %s: %w", h.Path(), err)
	}
	return nil
}

// String returns the current value formatted as a string.
func (h *BasicHandler) String() (string, error) {
	val, err := h.Get()
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.String:
		return rv.String(), nil
	}
	return fmt.Sprintf("%v", val), nil
}

// Int64 returns the current value as int64.
func (h *BasicHandler) Int64() (int64, error) {
	var out int64
	if err := h.read(&out); err != nil {
		return 0, err
	}
	return out, nil
}

// Float64 returns the current value as float64.
func (h *BasicHandler) Float64() (float64, error) {
	var out float64
	if err := h.read(&out); err != nil {
		return 0, err
	}
	return out, nil
}

// Bool returns the current value as bool.
func (h *BasicHandler) Bool() (bool, error) {
	var out bool
	if err := h.read(&out); err != nil {
		return false, err
	}
	return out, nil
}

func (h *BasicHandler) read(target any) error {
	val, err := h.Get()
	if err != nil {
		return err
	}
	if val == nil {
		return fmt.Errorf("tunable %s is nil", h.Path())
	}
	if err := decode(val, target); err != nil {
		return fmt.Errorf("tunable %s: %w", h.Path(), err)
	}
	return nil
}

// convert decodes value into a fresh value of type t.
func convert(value any, t reflect.Type) (any, error) {
	if value == nil {
		return reflect.Zero(t).Interface(), nil
	}
	if reflect.TypeOf(value) == t {
		return value, nil
	}

	target := reflect.New(t)
	if err := decode(value, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

func decode(input, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // max IPv6 text length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		_, ipnet, err := net.ParseCIDR(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
