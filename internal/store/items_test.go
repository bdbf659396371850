package store

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/storage"
)

// staticLoader returns a fixed collection.
type staticLoader []model.Item

func (l staticLoader) Load(_ context.Context) []model.Item {
	return l
}

// newInitializedStore creates a store loaded with items.
func newInitializedStore(t *testing.T, items ...model.Item) *ItemStore {
	t.Helper()

	s := NewItemStore(zap.NewNop())
	if err := s.Initialize(context.Background(), staticLoader(items)); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}
	return s
}

// ids returns the ids of items in order.
func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewItemStore(t *testing.T) {
	// Act
	s := NewItemStore(nil)

	// Assert
	if s == nil {
		t.Fatal("NewItemStore() returned nil")
	}
	if s.Initialized() {
		t.Error("new store should not be initialized")
	}
	if s.items == nil {
		t.Error("items should be initialized")
	}
}

func TestItemStore_Initialize(t *testing.T) {
	tests := []struct {
		name       string
		loaded     []model.Item
		wantNextID int
	}{
		{
			name:       "empty storage starts at zero",
			loaded:     nil,
			wantNextID: 0,
		},
		{
			name: "gaps in ids",
			loaded: []model.Item{
				{ID: "0", Name: "A"},
				{ID: "3", Name: "B"},
			},
			wantNextID: 4,
		},
		{
			name: "largest id not last",
			loaded: []model.Item{
				{ID: "9", Name: "A"},
				{ID: "2", Name: "B"},
			},
			wantNextID: 10,
		},
		{
			name: "unparseable ids count as zero",
			loaded: []model.Item{
				{ID: "abc", Name: "A"},
			},
			wantNextID: 1,
		},
		{
			name: "unparseable mixed with numeric",
			loaded: []model.Item{
				{ID: "abc", Name: "A"},
				{ID: "5", Name: "B"},
			},
			wantNextID: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newInitializedStore(t, tt.loaded...)

			// Act
			created, err := s.Add(model.NewDraft("New", "1", "1"))

			// Assert
			if err != nil {
				t.Fatalf("Add() unexpected error: %v", err)
			}
			if created.ID != strconv.Itoa(tt.wantNextID) {
				t.Errorf("ID = %s, want %d", created.ID, tt.wantNextID)
			}
			if got := len(s.List()); got != len(tt.loaded)+1 {
				t.Errorf("List() returned %d items, want %d", got, len(tt.loaded)+1)
			}
		})
	}
}

func TestItemStore_Initialize_Twice(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)

	// Act
	err := s.Initialize(context.Background(), staticLoader(nil))

	// Assert
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Initialize() error = %v, want %v", err, ErrAlreadyInitialized)
	}
}

func TestItemStore_NotInitialized(t *testing.T) {
	// Arrange
	s := NewItemStore(zap.NewNop())
	draft := model.NewDraft("A", "1", "1")

	// Act & Assert
	if _, err := s.Add(draft); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Add() error = %v, want %v", err, ErrNotInitialized)
	}
	if _, _, err := s.Edit("0", draft); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Edit() error = %v, want %v", err, ErrNotInitialized)
	}
	if _, err := s.Delete("0"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Delete() error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestItemStore_Add_SequentialIDs(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)

	// Act
	for i := 0; i < 25; i++ {
		created, err := s.Add(model.NewDraft("Item "+strconv.Itoa(i), "1", "1"))
		if err != nil {
			t.Fatalf("Add() unexpected error: %v", err)
		}

		// Assert
		if created.ID != strconv.Itoa(i) {
			t.Fatalf("ID = %s, want %d", created.ID, i)
		}
	}

	items := s.List()
	seen := make(map[string]bool)
	for i, item := range items {
		if seen[item.ID] {
			t.Errorf("duplicate ID %s", item.ID)
		}
		seen[item.ID] = true
		if item.Name != "Item "+strconv.Itoa(i) {
			t.Errorf("items[%d].Name = %s, want insertion order", i, item.Name)
		}
	}
}

func TestItemStore_Add_IDCounterLimit(t *testing.T) {
	tests := []struct {
		name     string
		loadedID int
		wantIDs  []string
	}{
		{
			name:     "loaded id at limit",
			loadedID: math.MaxInt,
			wantIDs:  nil,
		},
		{
			name:     "one id left",
			loadedID: math.MaxInt - 1,
			wantIDs:  []string{strconv.Itoa(math.MaxInt)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newInitializedStore(t, model.Item{ID: strconv.Itoa(tt.loadedID), Name: "Last"})

			// Act
			var created []string
			var lastErr error
			for i := 0; i < 3; i++ {
				item, err := s.Add(model.NewDraft("New", "1", "1"))
				if err != nil {
					lastErr = err
					continue
				}
				created = append(created, item.ID)
			}

			// Assert
			if !equalStrings(created, tt.wantIDs) {
				t.Errorf("created ids = %v, want %v", created, tt.wantIDs)
			}
			if !errors.Is(lastErr, ErrIDSpaceExhausted) {
				t.Errorf("Add() error = %v, want %v", lastErr, ErrIDSpaceExhausted)
			}
			for _, item := range s.List() {
				if item.NumericID() < 0 {
					t.Errorf("negative id %s in collection", item.ID)
				}
			}
			if got := len(s.List()); got != 1+len(tt.wantIDs) {
				t.Errorf("len(List()) = %d, want %d", got, 1+len(tt.wantIDs))
			}
		})
	}
}

func TestItemStore_Add_StoresParsedFields(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)

	// Act
	created, err := s.Add(model.NewDraft("  Widget ", "4", "2.50"))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	want := model.Item{ID: "0", Name: "Widget", Quantity: 4, Price: 2.5}
	if created != want {
		t.Errorf("Add() = %+v, want %+v", created, want)
	}
	if got, ok := s.Get("0"); !ok || got != want {
		t.Errorf("Get() = %+v, %v, want %+v", got, ok, want)
	}
}

func TestItemStore_Add_Validation(t *testing.T) {
	tests := []struct {
		name    string
		draft   model.Draft
		wantErr error
	}{
		{
			name:    "whitespace name",
			draft:   model.NewDraft("  ", "1", "1"),
			wantErr: model.ErrEmptyName,
		},
		{
			name:    "negative quantity",
			draft:   model.NewDraft("A", "-1", "1"),
			wantErr: model.ErrInvalidQuantity,
		},
		{
			name:    "non-numeric quantity",
			draft:   model.NewDraft("A", "abc", "1"),
			wantErr: model.ErrInvalidQuantity,
		},
		{
			name:    "negative price",
			draft:   model.NewDraft("A", "1", "-3"),
			wantErr: model.ErrInvalidPrice,
		},
		{
			name:    "zero quantity is valid",
			draft:   model.NewDraft("A", "0", "1"),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newInitializedStore(t, model.Item{ID: "0", Name: "Existing", Quantity: 1, Price: 1})
			var changes int
			s.OnChange(func(model.Snapshot) { changes++ })

			// Act
			_, err := s.Add(tt.draft)

			// Assert
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Add() unexpected error: %v", err)
				}
				if len(s.List()) != 2 {
					t.Errorf("List() returned %d items, want 2", len(s.List()))
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
			}
			var vErr *model.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Add() error %T is not *model.ValidationError", err)
			}
			if got := ids(s.List()); !equalStrings(got, []string{"0"}) {
				t.Errorf("collection changed after failed Add: %v", got)
			}
			if changes != 0 {
				t.Errorf("change hook called %d times, want 0", changes)
			}
		})
	}
}

func TestItemStore_Add_FailedValidationDoesNotConsumeID(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)

	// Act
	_, _ = s.Add(model.NewDraft("", "1", "1"))
	created, err := s.Add(model.NewDraft("A", "1", "1"))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if created.ID != "0" {
		t.Errorf("ID = %s, want 0", created.ID)
	}
}

func TestItemStore_Edit(t *testing.T) {
	// Arrange
	s := newInitializedStore(t,
		model.Item{ID: "0", Name: "A", Quantity: 1, Price: 1},
		model.Item{ID: "1", Name: "B", Quantity: 2, Price: 2},
		model.Item{ID: "2", Name: "C", Quantity: 3, Price: 3},
	)

	// Act
	updated, matched, err := s.Edit("1", model.NewDraft("B2", "20", "2.5"))

	// Assert
	if err != nil {
		t.Fatalf("Edit() unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("Edit() matched = false, want true")
	}
	want := model.Item{ID: "1", Name: "B2", Quantity: 20, Price: 2.5}
	if updated != want {
		t.Errorf("Edit() = %+v, want %+v", updated, want)
	}

	items := s.List()
	if got := ids(items); !equalStrings(got, []string{"0", "1", "2"}) {
		t.Errorf("order = %v, want [0 1 2]", got)
	}
	if items[1] != want {
		t.Errorf("items[1] = %+v, want %+v", items[1], want)
	}
}

func TestItemStore_Edit_NoMatch(t *testing.T) {
	// Arrange
	original := []model.Item{
		{ID: "0", Name: "A", Quantity: 1, Price: 1},
		{ID: "1", Name: "B", Quantity: 2, Price: 2},
	}
	s := newInitializedStore(t, original...)

	// Act
	updated, matched, err := s.Edit("7", model.NewDraft("X", "1", "1"))

	// Assert
	if err != nil {
		t.Fatalf("Edit() unexpected error: %v", err)
	}
	if matched {
		t.Error("Edit() matched = true, want false")
	}
	if updated != (model.Item{}) {
		t.Errorf("Edit() = %+v, want zero item", updated)
	}
	items := s.List()
	for i := range original {
		if items[i] != original[i] {
			t.Errorf("items[%d] = %+v, want %+v", i, items[i], original[i])
		}
	}
}

func TestItemStore_Edit_Validation(t *testing.T) {
	// Arrange
	original := model.Item{ID: "0", Name: "A", Quantity: 1, Price: 1}
	s := newInitializedStore(t, original)

	// Act
	_, matched, err := s.Edit("0", model.NewDraft("A", "1", "abc"))

	// Assert
	if !errors.Is(err, model.ErrInvalidPrice) {
		t.Fatalf("Edit() error = %v, want %v", err, model.ErrInvalidPrice)
	}
	if matched {
		t.Error("Edit() matched = true on validation failure")
	}
	if got, _ := s.Get("0"); got != original {
		t.Errorf("item changed after failed Edit: %+v", got)
	}
}

func TestItemStore_Delete(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		wantMatched bool
		wantIDs     []string
	}{
		{
			name:        "first item",
			id:          "0",
			wantMatched: true,
			wantIDs:     []string{"1", "2", "3"},
		},
		{
			name:        "middle item",
			id:          "2",
			wantMatched: true,
			wantIDs:     []string{"0", "1", "3"},
		},
		{
			name:        "last item",
			id:          "3",
			wantMatched: true,
			wantIDs:     []string{"0", "1", "2"},
		},
		{
			name:        "absent id",
			id:          "9",
			wantMatched: false,
			wantIDs:     []string{"0", "1", "2", "3"},
		},
		{
			name:        "empty id",
			id:          "",
			wantMatched: false,
			wantIDs:     []string{"0", "1", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := newInitializedStore(t)
			for i := 0; i < 4; i++ {
				if _, err := s.Add(model.NewDraft("Item", "1", "1")); err != nil {
					t.Fatalf("Add() unexpected error: %v", err)
				}
			}

			// Act
			matched, err := s.Delete(tt.id)

			// Assert
			if err != nil {
				t.Fatalf("Delete() unexpected error: %v", err)
			}
			if matched != tt.wantMatched {
				t.Errorf("Delete() matched = %v, want %v", matched, tt.wantMatched)
			}
			if got := ids(s.List()); !equalStrings(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestItemStore_Delete_IDsNotReused(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)
	_, _ = s.Add(model.NewDraft("A", "1", "1"))
	_, _ = s.Add(model.NewDraft("B", "1", "1"))

	// Act
	_, _ = s.Delete("1")
	created, err := s.Add(model.NewDraft("C", "1", "1"))

	// Assert
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if created.ID != "2" {
		t.Errorf("ID = %s, want 2", created.ID)
	}
}

func TestItemStore_Delete_DuplicateIDsRemovesFirst(t *testing.T) {
	// Arrange
	s := newInitializedStore(t,
		model.Item{ID: "1", Name: "first"},
		model.Item{ID: "1", Name: "second"},
	)

	// Act
	matched, _ := s.Delete("1")

	// Assert
	items := s.List()
	if !matched || len(items) != 1 || items[0].Name != "second" {
		t.Errorf("Delete() left %+v, want only the second duplicate", items)
	}
}

func TestItemStore_List_ReturnsCopy(t *testing.T) {
	// Arrange
	s := newInitializedStore(t, model.Item{ID: "0", Name: "A"})

	// Act
	items := s.List()
	items[0].Name = "mutated"

	// Assert
	if got, _ := s.Get("0"); got.Name != "A" {
		t.Errorf("store mutated through List() result: %+v", got)
	}
}

func TestItemStore_Snapshot(t *testing.T) {
	// Arrange
	s := newInitializedStore(t, model.Item{ID: "0", Name: "A"})
	if _, err := s.Add(model.NewDraft("B", "1", "1")); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	// Act
	snap := s.Snapshot()

	// Assert
	if snap.Revision != 1 {
		t.Errorf("Revision = %d, want 1", snap.Revision)
	}
	if got := ids(snap.Items); len(got) != 2 || got[1] != "1" {
		t.Errorf("Items ids = %v, want [0 1]", got)
	}
}

func TestItemStore_OnChange(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)
	var snapshots []model.Snapshot
	s.OnChange(func(snap model.Snapshot) {
		snapshots = append(snapshots, snap)
	})

	// Act
	_, _ = s.Add(model.NewDraft("A", "1", "1"))
	_, _ = s.Add(model.NewDraft("B", "1", "1"))
	_, _, _ = s.Edit("0", model.NewDraft("A2", "1", "1"))
	_, _, _ = s.Edit("42", model.NewDraft("X", "1", "1"))
	_, _ = s.Delete("1")
	_, _ = s.Delete("42")

	// Assert
	wantIDs := [][]string{
		{"0"},
		{"0", "1"},
		{"0", "1"},
		{"0", "1"},
		{"0"},
		{"0"},
	}
	if len(snapshots) != len(wantIDs) {
		t.Fatalf("hook called %d times, want %d", len(snapshots), len(wantIDs))
	}
	for i, snap := range snapshots {
		if snap.Revision != uint64(i+1) {
			t.Errorf("snapshots[%d].Revision = %d, want %d", i, snap.Revision, i+1)
		}
		if got := ids(snap.Items); !equalStrings(got, wantIDs[i]) {
			t.Errorf("snapshots[%d] ids = %v, want %v", i, got, wantIDs[i])
		}
	}
	if snapshots[2].Items[0].Name != "A2" {
		t.Errorf("edit snapshot name = %s, want A2", snapshots[2].Items[0].Name)
	}
	if s.Revision() != 6 {
		t.Errorf("Revision() = %d, want 6", s.Revision())
	}
}

func TestItemStore_RestartReflectsMutations(t *testing.T) {
	// Arrange
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	adapter := storage.NewAdapter(kv, storage.DefaultKey, zap.NewNop())

	first := NewItemStore(zap.NewNop())
	first.OnChange(func(snap model.Snapshot) {
		if err := adapter.Save(ctx, snap.Items); err != nil {
			t.Errorf("Save() unexpected error: %v", err)
		}
	})
	if err := first.Initialize(ctx, adapter); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}

	// Act
	_, _ = first.Add(model.NewDraft("A", "1", "1"))
	_, _ = first.Add(model.NewDraft("B", "2", "2"))
	_, _ = first.Add(model.NewDraft("C", "3", "3"))
	_, _, _ = first.Edit("1", model.NewDraft("B2", "5", "5"))
	_, _ = first.Delete("2")

	second := NewItemStore(zap.NewNop())
	if err := second.Initialize(ctx, adapter); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}

	// Assert
	got := second.List()
	want := first.List()
	if len(got) != len(want) {
		t.Fatalf("restarted store has %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	created, _ := second.Add(model.NewDraft("D", "1", "1"))
	if created.ID != "2" {
		t.Errorf("ID after restart = %s, want 2", created.ID)
	}
}

func TestItemStore_ConcurrentAdds(t *testing.T) {
	// Arrange
	s := newInitializedStore(t)
	var lastRevision uint64
	var outOfOrder bool
	s.OnChange(func(snap model.Snapshot) {
		if snap.Revision <= lastRevision {
			outOfOrder = true
		}
		lastRevision = snap.Revision
	})

	numGoroutines := 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Act
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			_, _ = s.Add(model.NewDraft("Item", "1", "1"))
		}()
	}
	wg.Wait()

	// Assert
	items := s.List()
	if len(items) != numGoroutines {
		t.Fatalf("List() returned %d items, want %d", len(items), numGoroutines)
	}
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.ID] {
			t.Errorf("duplicate ID %s", item.ID)
		}
		seen[item.ID] = true
	}
	if outOfOrder {
		t.Error("hooks observed revisions out of order")
	}
}

func TestItemStore_ImplementsInterface(t *testing.T) {
	var _ Store = (*ItemStore)(nil)
}
