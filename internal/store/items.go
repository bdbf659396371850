package store

import (
	"context"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Operation labels and results for store metrics.
const (
	opAdd    = "add"
	opEdit   = "edit"
	opDelete = "delete"

	resultOK        = "ok"
	resultInvalid   = "invalid"
	resultNoMatch   = "no_match"
	resultExhausted = "exhausted"
)

// Prometheus metrics.
var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_store_operations_total",
			Help: "Total number of item store mutations by outcome",
		},
		[]string{"operation", "result"},
	)

	storeItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_store_items",
			Help: "Number of items currently in the collection",
		},
	)
)

// ItemStore is the sole owner and mutator of the inventory collection.
//
// Change hooks run synchronously while the store lock is held, so they
// observe snapshots in revision order. A hook must not block and must not
// call back into the store.
type ItemStore struct {
	mu          sync.RWMutex
	items       []model.Item
	nextID      int
	exhausted   bool
	revision    uint64
	initialized bool
	hooks       []ChangeFunc
	logger      *zap.Logger
}

// NewItemStore creates an uninitialized ItemStore.
func NewItemStore(logger *zap.Logger) *ItemStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemStore{
		items:  []model.Item{},
		logger: logger,
	}
}

// OnChange registers fn to be called with the full collection after every
// accepted mutation.
func (s *ItemStore) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Initialize loads the persisted collection once and derives the next id as
// one more than the largest numeric id present.
func (s *ItemStore) Initialize(ctx context.Context, loader Loader) error {
	loaded := loader.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	s.items = model.CloneItems(loaded)
	s.nextID = 0
	if len(s.items) > 0 {
		maxID := s.items[0].NumericID()
		for _, item := range s.items[1:] {
			if n := item.NumericID(); n > maxID {
				maxID = n
			}
		}
		if maxID == math.MaxInt {
			s.logger.Error("loaded item id is at the counter limit, adds are disabled",
				zap.Int("max_id", maxID),
			)
			s.nextID = maxID
			s.exhausted = true
		} else {
			s.nextID = maxID + 1
		}
	}
	s.initialized = true
	storeItems.Set(float64(len(s.items)))

	s.logger.Info("item store initialized",
		zap.Int("items", len(s.items)),
		zap.Int("next_id", s.nextID),
	)
	return nil
}

// Initialized reports whether Initialize has completed.
func (s *ItemStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Revision returns the number of mutations applied since initialization.
func (s *ItemStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns the collection together with its revision.
func (s *ItemStore) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Snapshot{Revision: s.revision, Items: model.CloneItems(s.items)}
}

// List implements Store.
func (s *ItemStore) List() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneItems(s.items)
}

// Get implements Store.
func (s *ItemStore) Get(id string) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return model.Item{}, false
}

// Add implements Store.
func (s *ItemStore) Add(draft model.Draft) (model.Item, error) {
	fields, err := draft.Parse()
	if err != nil {
		storeOperationsTotal.WithLabelValues(opAdd, resultInvalid).Inc()
		return model.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return model.Item{}, ErrNotInitialized
	}
	if s.exhausted {
		storeOperationsTotal.WithLabelValues(opAdd, resultExhausted).Inc()
		return model.Item{}, ErrIDSpaceExhausted
	}

	item := model.Item{
		ID:       model.FormatID(s.nextID),
		Name:     fields.Name,
		Quantity: fields.Quantity,
		Price:    fields.Price,
	}
	if s.nextID == math.MaxInt {
		s.exhausted = true
	} else {
		s.nextID++
	}
	s.items = append(s.items, item)

	storeOperationsTotal.WithLabelValues(opAdd, resultOK).Inc()
	s.logger.Debug("item added", zap.String("id", item.ID), zap.String("name", item.Name))
	s.changed()

	return item, nil
}

// Edit implements Store.
func (s *ItemStore) Edit(id string, draft model.Draft) (model.Item, bool, error) {
	fields, err := draft.Parse()
	if err != nil {
		storeOperationsTotal.WithLabelValues(opEdit, resultInvalid).Inc()
		return model.Item{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return model.Item{}, false, ErrNotInitialized
	}

	i := s.indexOf(id)
	if i < 0 {
		storeOperationsTotal.WithLabelValues(opEdit, resultNoMatch).Inc()
		s.logger.Debug("edit matched no item", zap.String("id", id))
		s.changed()
		return model.Item{}, false, nil
	}

	updated := model.Item{
		ID:       id,
		Name:     fields.Name,
		Quantity: fields.Quantity,
		Price:    fields.Price,
	}
	s.items[i] = updated

	storeOperationsTotal.WithLabelValues(opEdit, resultOK).Inc()
	s.logger.Debug("item edited", zap.String("id", id))
	s.changed()

	return updated, true, nil
}

// Delete implements Store.
func (s *ItemStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, ErrNotInitialized
	}

	i := s.indexOf(id)
	if i < 0 {
		storeOperationsTotal.WithLabelValues(opDelete, resultNoMatch).Inc()
		s.logger.Debug("delete matched no item", zap.String("id", id))
		s.changed()
		return false, nil
	}

	remaining := make([]model.Item, 0, len(s.items)-1)
	remaining = append(remaining, s.items[:i]...)
	remaining = append(remaining, s.items[i+1:]...)
	s.items = remaining

	storeOperationsTotal.WithLabelValues(opDelete, resultOK).Inc()
	s.logger.Debug("item deleted", zap.String("id", id))
	s.changed()

	return true, nil
}

// indexOf returns the position of the first item with id, or -1.
// Caller must hold the lock.
func (s *ItemStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// changed bumps the revision and hands a snapshot to every hook.
// Caller must hold the write lock.
func (s *ItemStore) changed() {
	s.revision++
	storeItems.Set(float64(len(s.items)))

	if len(s.hooks) == 0 {
		return
	}

	snap := model.Snapshot{Revision: s.revision, Items: model.CloneItems(s.items)}
	for _, hook := range s.hooks {
		hook(snap)
	}
}
