package layer

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

// MemoryStore keeps layers in process memory. Layers are stored in encoded
// form so callers never share a network with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	layers map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layers: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*network.Network, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.layers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decode(id, data)
}

func (s *MemoryStore) Set(ctx context.Context, id string, n *network.Network) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := encode(id, n)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.layers[id] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.layers, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.layers))
	for id := range s.layers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
