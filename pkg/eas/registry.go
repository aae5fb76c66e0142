package eas

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	enginesMu sync.RWMutex
	engines   = map[string]func() Library{}
)

// Register makes an engine available by name. Engines register themselves
// from init; registering the same name twice panics.
func Register(name string, open func() Library) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if open == nil {
		panic("eas: Register engine is nil")
	}
	if _, dup := engines[name]; dup {
		panic("eas: Register called twice for engine " + name)
	}
	engines[name] = open
}

// Open returns a new Library for the named engine.
func Open(name string) (Library, error) {
	enginesMu.RLock()
	open, ok := engines[name]
	enginesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %s)", name, strings.Join(Engines(), ", "))
	}
	return open(), nil
}

// Engines returns the sorted names of the registered engines.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
