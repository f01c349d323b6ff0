package layer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/transitmap/pkg/core/network"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

// FileStore is a file-based layer store for CLI applications.
// Layers are stored as segment JSON files, one per layer, in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based layer store.
// If baseDir is empty, defaults to ~/.local/share/transitmap/layers/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".local", "share", "transitmap", "layers")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, storageErr(err, "create directory for", baseDir)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) layerPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*network.Network, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.layerPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, storageErr(err, "read", id)
	}
	return decode(id, data)
}

// Set writes the layer through a temporary file so readers never see a
// partial document.
func (s *FileStore) Set(ctx context.Context, id string, n *network.Network) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, "."+id+"-*")
	if err != nil {
		return storageErr(err, "write", id)
	}
	defer os.Remove(tmp.Name())

	if err := pkgio.WriteSegments(n, tmp); err != nil {
		tmp.Close()
		return storageErr(err, "encode", id)
	}
	if err := tmp.Close(); err != nil {
		return storageErr(err, "write", id)
	}
	if err := os.Rename(tmp.Name(), s.layerPath(id)); err != nil {
		return storageErr(err, "write", id)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.layerPath(id)); err != nil && !os.IsNotExist(err) {
		return storageErr(err, "remove", id)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, storageErr(err, "list", s.baseDir)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for layer files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
