package media

import (
	"reflect"
	"sync"
)

// State holds the runtime values of a media device, keyed by state field.
//
// Typical contents for a TV:
//
//	{"online": true, "on": false, "currentVolume": 40, "isMuted": false,
//	 "activityState": "INACTIVE", "playbackState": "STOPPED",
//	 "currentApplication": "", "currentInput": "",
//	 "currentModeSettings": {}, "currentToggleSettings": {}}
type State map[string]any

// DeepCopy returns an independent copy of the state.
func (s State) DeepCopy() State {
	if s == nil {
		return nil
	}
	return State(deepCopyMap(s))
}

// Store is the mutable state record of one device.
//
// The key set is fixed when the store is created; Merge only ever
// overwrites values of keys that already exist.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Callers still serialise
//     updates per device so that read-modify-write sequences do not interleave.
type Store struct {
	mu     sync.RWMutex
	values State
	fields map[string]StateField
}

// NewStore creates a store seeded with the initial state. The recognised
// keys are exactly those of fields; initial values for unknown keys are
// dropped.
func NewStore(initial State, fields []StateField) *Store {
	s := &Store{
		values: make(State, len(fields)),
		fields: make(map[string]StateField, len(fields)),
	}
	for _, f := range fields {
		s.fields[f.Key] = f
		s.values[f.Key] = deepCopyValue(initial[f.Key])
	}
	return s
}

// Merge overwrites recognised keys with the values in partial.
//
// Keys not in the store are ignored, never added. changed reports
// whether at least one stored value differs afterwards, compared by value
// (numbers compare numerically across Go types; maps and slices deeply).
// previous is a copy of the state as it was before the merge.
func (s *Store) Merge(partial map[string]any) (changed bool, previous State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous = s.values.DeepCopy()
	for key, value := range partial {
		if _, ok := s.fields[key]; !ok {
			continue
		}
		if valuesEqual(s.values[key], value) {
			continue
		}
		s.values[key] = deepCopyValue(value)
		changed = true
	}
	return changed, previous
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.DeepCopy()
}

// Get returns the current value of key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return deepCopyValue(v), ok
}

// Field returns the schema entry for a recognised key.
func (s *Store) Field(key string) (StateField, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[key]
	return f, ok
}

// Keys returns the recognised keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	return keys
}

// valuesEqual compares state values by value. JSON decoding yields
// float64 where configuration yields int, so numbers are compared after
// widening; everything else falls back to reflect.DeepEqual on normalised
// copies.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// normalizeValue widens numbers inside nested maps and slices so that
// {"x": 1} and {"x": 1.0} compare equal.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		cpy := make([]string, len(val))
		copy(cpy, val)
		return cpy
	default:
		return v
	}
}
