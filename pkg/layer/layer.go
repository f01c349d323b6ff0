// Package layer stores named transit networks ("layers").
//
// A layer is a network in segment JSON form. The schematic pipeline reads its
// input from one layer and can write its output to another, so a host can
// keep the geographic source and its schematics side by side.
//
// Backends:
//   - memory: process-local, for tests and the API server without a database
//   - file: one JSON file per layer, for the CLI
//   - redis: shared across API instances
//   - mongo: one document per layer
//
// [Open] picks a backend from a URL:
//
//	store, err := layer.Open(ctx, "file:///var/lib/transitmap/layers")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	n, err := store.Get(ctx, "berlin-ubahn")
//	if errors.Is(err, errors.ErrCodeLayerNotFound) {
//	    // ...
//	}
//
// A missing layer is LAYER_NOT_FOUND. Backend failures are STORAGE_ERROR.
package layer

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

// Store reads and writes layers.
type Store interface {
	// Get returns the layer with the given id.
	Get(ctx context.Context, id string) (*network.Network, error)

	// Set creates or replaces a layer.
	Set(ctx context.Context, id string, n *network.Network) error

	// Delete removes a layer. Deleting a missing layer is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every layer id in ascending order.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Backends lists the URL schemes [Open] understands.
var Backends = []string{"mem", "file", "redis", "rediss", "mongodb", "mongodb+srv"}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID checks that id is usable as a file name and database key.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid layer id %q (letters, digits, '.', '_' and '-', at most 128)", id)
	}
	return nil
}

// NewID returns a fresh random layer id.
func NewID() string { return uuid.NewString() }

func notFound(id string) error {
	return errors.New(errors.ErrCodeLayerNotFound, "layer %q not found", id)
}

func storageErr(err error, op, id string) error {
	return errors.Wrap(errors.ErrCodeStorage, err, "%s layer %q", op, id)
}

func encode(id string, n *network.Network) ([]byte, error) {
	data, err := pkgio.MarshalNetwork(n)
	if err != nil {
		return nil, storageErr(err, "encode", id)
	}
	return data, nil
}

func decode(id string, data []byte) (*network.Network, error) {
	n, err := pkgio.UnmarshalNetwork(data)
	if err != nil {
		return nil, storageErr(err, "decode", id)
	}
	return n, nil
}
