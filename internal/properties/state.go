package properties

import "sync"

// State is the runtime store for live objects such as exchange handles. It
// is never touched by configuration reloads.
type State struct {
	mu   sync.RWMutex
	tree map[string]interface{}
}

func NewState() *State {
	return &State{tree: map[string]interface{}{}}
}

// Get returns the value stored at path. Subtrees are copied, live objects
// are shared.
func (s *State) Get(path string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := DeepGet(s.tree, path)
	if !ok {
		return nil, false
	}
	return deepCopy(value), true
}

func (s *State) Set(path string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	DeepSet(s.tree, path, value)
}

// SetIfAbsent stores value unless path already holds one and returns the
// value that ends up stored.
func (s *State) SetIfAbsent(path string, value interface{}) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := DeepGet(s.tree, path); ok && existing != nil {
		return existing, false
	}
	DeepSet(s.tree, path, value)
	return value, true
}

// Delete removes path and returns what was stored there.
func (s *State) Delete(path string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeepDelete(s.tree, path)
}
