package scene

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownKind = errors.New("unknown object kind")

// Record is the JSON export form of an object. Scale and Rotation are only
// present for transformed objects.
type Record struct {
	ID         string      `json:"id,omitempty"`
	Type       Kind        `json:"type"`
	Path       string      `json:"path,omitempty"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Selectable bool        `json:"selectable"`
	Stroke     string      `json:"stroke"`
	Weight     float64     `json:"weight"`
	Fill       string      `json:"fill"`
	Scale      *[2]float64 `json:"scale,omitempty"`
	Rotation   float64     `json:"rotation,omitempty"`
}

// HydrateFunc rebuilds a live object from its record.
type HydrateFunc func(Record) (Object, error)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]HydrateFunc{
		KindPath: hydratePath,
	}
)

func hydratePath(r Record) (Object, error) {
	p, err := HydratePath(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Register adds a hydrate function for a new kind, replacing any previous one.
func Register(kind Kind, fn HydrateFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = fn
}

// Known reports whether records of kind can be hydrated.
func Known(kind Kind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// Hydrate dispatches on the record's type discriminator.
func Hydrate(r Record) (Object, error) {
	registryMu.RLock()
	fn, ok := registry[r.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
	}
	return fn(r)
}
