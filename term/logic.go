package term

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/algotrader/market"
)

// Logic is the computation behind a term. Implementations must be pure: the
// same inputs and mask always give the same output.
type Logic interface {
	// Columns lists the daily fields the logic reads.
	Columns() []market.Field

	// Window is the number of sessions of history needed, ending at the
	// evaluation date. Zero means the logic reads no data.
	Window() int

	// Compute returns []market.Asset, map[market.Asset]float64 or
	// map[market.Asset]bool; the term coerces it to its declared type.
	Compute(in Inputs, mask []market.Asset) (any, error)
}

// Factory builds a Logic from params. A factory error fails term
// construction.
type Factory func(p Params) (Logic, error)

var (
	logicMu  sync.RWMutex
	registry = make(map[string]Factory)
)

// RegisterLogic makes a logic available to terms under name.
func RegisterLogic(name string, f Factory) {
	logicMu.Lock()
	defer logicMu.Unlock()
	registry[normalizeName(name)] = f
}

// LookupLogic returns the factory registered under name.
func LookupLogic(name string) (Factory, error) {
	logicMu.RLock()
	defer logicMu.RUnlock()
	f, ok := registry[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownLogic, name, strings.Join(logicNamesLocked(), ", "))
	}
	return f, nil
}

// Logics lists registered logic names, sorted.
func Logics() []string {
	logicMu.RLock()
	defer logicMu.RUnlock()
	return logicNamesLocked()
}

func logicNamesLocked() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}
