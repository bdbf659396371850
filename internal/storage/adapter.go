package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Supported KV backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// sqliteFileName is the database file created inside the storage path.
const sqliteFileName = "inventory.db"

// Open creates the KV backend named by backend, rooted at path.
func Open(backend, path string) (KV, error) {
	switch backend {
	case BackendFile:
		return NewFileKV(path)
	case BackendSQLite:
		kv, err := NewSQLiteKV(filepath.Join(path, sqliteFileName))
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

// Adapter reads and writes the whole item collection under one key.
type Adapter struct {
	kv     KV
	key    string
	logger *zap.Logger
}

// NewAdapter creates an Adapter. An empty key selects DefaultKey.
func NewAdapter(kv KV, key string, logger *zap.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Key returns the key the collection is stored under.
func (a *Adapter) Key() string {
	return a.key
}

// Load returns the last saved collection. A missing value, a read failure,
// or a value that does not decode all yield an empty collection; failures
// are logged and never returned.
func (a *Adapter) Load(ctx context.Context) []model.Item {
	data, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		a.logger.Error("failed to load items",
			zap.Error(&PersistenceError{Op: "load", Key: a.key, Err: err}),
		)
		return []model.Item{}
	}
	if !ok {
		a.logger.Debug("no stored items", zap.String("key", a.key))
		return []model.Item{}
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		a.logger.Error("failed to parse stored items",
			zap.Error(&PersistenceError{Op: "parse", Key: a.key, Err: err}),
		)
		return []model.Item{}
	}
	if items == nil {
		return []model.Item{}
	}

	a.logger.Debug("items loaded", zap.String("key", a.key), zap.Int("count", len(items)))
	return items
}

// Save serializes the whole collection and replaces the stored value.
// Errors are returned as *PersistenceError.
func (a *Adapter) Save(ctx context.Context, items []model.Item) error {
	data, err := json.Marshal(model.CloneItems(items))
	if err != nil {
		return &PersistenceError{Op: "encode", Key: a.key, Err: err}
	}

	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return &PersistenceError{Op: "save", Key: a.key, Err: err}
	}
	return nil
}
