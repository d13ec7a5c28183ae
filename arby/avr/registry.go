package avr

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an engine for a registered MCU model.
type Factory func() (Engine, error)

var (
	factoriesMu sync.Mutex
	factories   = make(map[string]Factory)
)

// Register makes an engine factory available under an MCU name, in the manner
// of database/sql drivers. Engine implementations register themselves from an
// init function.
func Register(mcu string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("avr: Register factory is nil")
	}
	if _, dup := factories[mcu]; dup {
		panic("avr: Register called twice for mcu " + mcu)
	}
	factories[mcu] = f
}

// New constructs an engine for the named MCU model.
func New(mcu string) (Engine, error) {
	factoriesMu.Lock()
	f, ok := factories[mcu]
	factoriesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("avr: no engine registered for mcu %q (registered: %v)", mcu, registered())
	}
	return f()
}

func registered() []string {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
