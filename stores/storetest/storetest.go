// Package storetest checks that a core.CollectionStore honours the collection contract.
package storetest

import (
	"context"
	"reflect"
	"recipe-server/core"
	"testing"
)

// Factory returns a fresh, empty store. CorruptFunc overwrites a collection with raw bytes; it
// may be nil when the backend cannot hold invalid data.
type (
	Factory     func(t *testing.T) core.CollectionStore
	CorruptFunc func(t *testing.T, store core.CollectionStore, c core.Collection, data []byte)
)

// Run exercises the behaviour every backend must share.
func Run(t *testing.T, newStore Factory, corrupt CorruptFunc) {
	t.Run("EmptyCollection", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newStore(t)) })
	t.Run("CollectionsAreIndependent", func(t *testing.T) { testIndependent(t, newStore(t)) })
	if corrupt != nil {
		t.Run("CorruptData", func(t *testing.T) { testCorrupt(t, newStore(t), corrupt) })
	}
}

func sampleRecipes() []core.Recipe {
	return []core.Recipe{
		{ID: "r3", Name: "Tomato Soup", CategoryID: "c1", PDFPath: "1700000000000-aaaa.pdf"},
		{ID: "r1", Name: "Crème brûlée", CategoryID: "c2", OwnerID: "u1", PDFURL: "https://cdn.example.com/b.pdf", PDFRef: "b.pdf"},
		{ID: "r2", Name: "סלט", CategoryID: "c1", PDFPath: "c.pdf", ImageURL: "/uploads/c.png", ImageRef: "c.png"},
	}
}

func testEmpty(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	for _, c := range core.AllCollections {
		records, err := store.ReadAll(ctx, c)
		if err != nil {
			t.Fatalf("ReadAll(%s) failed: %v", c, err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("ReadAll(%s) = %v, want an empty non-nil slice", c, records)
		}
	}
}

func testRoundTrip(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	want := sampleRecipes()

	if err := core.SaveCollection(ctx, store, core.Recipes, want); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}
	got, err := core.LoadCollection[core.Recipe](ctx, store, core.Recipes)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func testOverwrite(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()

	if err := core.SaveCollection(ctx, store, core.Recipes, sampleRecipes()); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}
	if err := core.SaveCollection(ctx, store, core.Recipes, []core.Recipe{}); err != nil {
		t.Fatalf("SaveCollection(empty) failed: %v", err)
	}
	got, err := core.LoadCollection[core.Recipe](ctx, store, core.Recipes)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty collection after overwrite, got %d records", len(got))
	}
}

func testIndependent(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()

	categories := []core.Category{{ID: "c1", Name: "Soups"}}
	if err := core.SaveCollection(ctx, store, core.Categories, categories); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}
	if err := core.SaveCollection(ctx, store, core.Recipes, sampleRecipes()); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}

	got, err := core.LoadCollection[core.Category](ctx, store, core.Categories)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if !reflect.DeepEqual(got, categories) {
		t.Errorf("categories = %+v, want %+v", got, categories)
	}
	users, err := store.ReadAll(ctx, core.Users)
	if err != nil {
		t.Fatalf("ReadAll(users) failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("users should be untouched, got %d records", len(users))
	}
}

func testCorrupt(t *testing.T, store core.CollectionStore, corrupt CorruptFunc) {
	ctx := context.Background()

	for name, data := range map[string]string{
		"truncated": `[{"_id":"c1","name":"So`,
		"object":    `{"_id":"c1"}`,
		"empty":     ``,
		"null":      `null`,
	} {
		t.Run(name, func(t *testing.T) {
			corrupt(t, store, core.Categories, []byte(data))
			records, err := store.ReadAll(ctx, core.Categories)
			if err != nil {
				t.Fatalf("ReadAll() failed: %v", err)
			}
			if len(records) != 0 {
				t.Errorf("ReadAll() = %d records, want 0", len(records))
			}
		})
	}
}
