package sqlite

import (
	"context"
	"path/filepath"
	"recipe-server/core"
	"recipe-server/stores/storetest"
	"testing"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t,
		func(t *testing.T) core.CollectionStore { return newTestStore(t) },
		func(t *testing.T, store core.CollectionStore, c core.Collection, data []byte) {
			if err := store.(*sqliteStore).SetRaw(context.Background(), c, data); err != nil {
				t.Fatalf("SetRaw() failed: %v", err)
			}
		},
	)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if err := core.SaveCollection(ctx, store, core.Categories, []core.Category{{ID: "c1", Name: "Soups"}}); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	defer reopened.Close()

	categories, err := core.LoadCollection[core.Category](ctx, reopened, core.Categories)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if len(categories) != 1 || categories[0].ID != "c1" {
		t.Errorf("categories = %+v", categories)
	}
}
