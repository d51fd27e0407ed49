// FILE: lixenwraith/tunable/task/network_factory.go
package task

import (
	"reflect"
	"sync"
)

// NetworkTaskFactory is embedded by factories whose tasks act on one network.
// The network is required and may be replaced between invocations.
type NetworkTaskFactory struct {
	mu      sync.RWMutex
	network Network
}

// SetNetwork replaces the network the next tasks will operate on.
func (f *NetworkTaskFactory) SetNetwork(n Network) error {
	if isNilNetwork(n) {
		return ErrNilNetwork
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.network = n
	return nil
}

func (f *NetworkTaskFactory) Network() Network {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.network
}

// IsReady reports whether a network has been set.
func (f *NetworkTaskFactory) IsReady() bool {
	return f.Network() != nil
}

// isNilNetwork also catches a nil pointer held in a non-nil interface.
func isNilNetwork(n Network) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
