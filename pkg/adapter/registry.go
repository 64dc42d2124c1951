package adapter

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// DefaultType is used when a config names no adapter.
const DefaultType = "sqlite"

// Factory builds an unconnected adapter for the given logger.
type Factory func(*slog.Logger) Adapter

// backends maps lower-cased backend names to factories. Delegate packages
// fill it from init().
var backends = struct {
	sync.RWMutex
	m map[string]Factory
}{m: make(map[string]Factory)}

// Register makes a backend available under name. Registering a name again
// replaces the previous factory; a nil factory panics.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("adapter: Register factory is nil for " + name)
	}
	backends.Lock()
	defer backends.Unlock()
	backends.m[strings.ToLower(name)] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	backends.RLock()
	defer backends.RUnlock()
	f, ok := backends.m[strings.ToLower(name)]
	return f, ok
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns the registered backend names, sorted.
func ListAdapters() []string {
	backends.RLock()
	defer backends.RUnlock()
	return slices.Sorted(maps.Keys(backends.m))
}

// NewAdapter creates an unconnected adapter for cfg.Type. The adapter's
// logger carries an "adapter" attribute.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	typ := cfg.Type
	if typ == "" {
		typ = DefaultType
	}

	factory, ok := Get(typ)
	if !ok {
		return nil, &UnknownAdapterError{Type: typ, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger.With(slog.String("adapter", typ))), nil
}

// UnknownAdapterError is returned when no backend is registered under Type.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown backend %q (available: %s)\nHint: check backend in gsql.yaml or the --backend flag",
		e.Type, strings.Join(e.Available, ", "))
}
