// Package backends is the build-time registry of object-store backends.
package backends

import (
	"flag"
	"fmt"
	"sort"
	"sync"

	"xdao.co/datatoken/store"
)

// Backend is a build-time plugin that can open a store.ObjectStore
// implementation.
//
// Backends typically register themselves in init():
//
//	backends.MustRegister(backends.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds backend-specific flags to fs.
	// It may be called for more than one FlagSet (e.g. once for the
	// CLI and once per config-driven Open), so flag values should live
	// in package-level variables.
	RegisterFlags func(fs *flag.FlagSet)

	// Open constructs the object store using values parsed into flags
	// registered by RegisterFlags. It returns an optional close function.
	Open func() (store.ObjectStore, func() error, error)
}

var (
	mu       sync.RWMutex
	registry = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("backends: backend name is required")
	}
	if b.RegisterFlags == nil {
		return fmt.Errorf("backends: backend %q missing RegisterFlags", b.Name)
	}
	if b.Open == nil {
		return fmt.Errorf("backends: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("backends: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[b.Name]; exists {
		return fmt.Errorf("backends: backend %q already registered", b.Name)
	}
	registry[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(registry))
	for _, b := range registry {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags registers flags for all backends matching usage.
//
// This enables single-pass flag parsing (Go's flag package rejects
// unknown flags).
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

// Open opens the named backend if it exists and matches usage.
func Open(name string, usage Usage) (store.ObjectStore, func() error, error) {
	mu.RLock()
	b, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b.Open()
}

// OpenWithConfig opens the named backend with config values applied to its
// flags. Config keys mirror the backend's CLI flag names (e.g. "localfs-dir").
//
// The flags are parsed into a throwaway FlagSet so config-driven opens do
// not interfere with CLI flag registration.
func OpenWithConfig(name string, usage Usage, config map[string]string) (store.ObjectStore, func() error, error) {
	mu.RLock()
	b, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("backend %q not supported in this binary", name)
	}

	fs := flag.NewFlagSet("backend:"+name, flag.ContinueOnError)
	b.RegisterFlags(fs)
	for key, value := range config {
		if err := fs.Set(key, value); err != nil {
			return nil, nil, fmt.Errorf("backend %q: config key %q: %w", name, key, err)
		}
	}
	return b.Open()
}
