package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// rawStore keeps raw records per collection.
type rawStore struct {
	records map[Collection][]json.RawMessage
	readErr error
}

func (s *rawStore) ReadAll(ctx context.Context, c Collection) ([]json.RawMessage, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.records[c], nil
}

func (s *rawStore) WriteAll(ctx context.Context, c Collection, records []json.RawMessage) error {
	s.records[c] = records
	return nil
}

func TestLoadCollection_SkipsBadRecords(t *testing.T) {
	store := &rawStore{records: map[Collection][]json.RawMessage{
		Categories: {
			json.RawMessage(`{"_id":"c1","name":"Soups"}`),
			json.RawMessage(`"not an object"`),
			json.RawMessage(`{"_id":"c2","name":"Salads","userId":"u1"}`),
		},
	}}

	got, err := LoadCollection[Category](context.Background(), store, Categories)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	want := []Category{{ID: "c1", Name: "Soups"}, {ID: "c2", Name: "Salads", OwnerID: "u1"}}
	if len(got) != len(want) {
		t.Fatalf("LoadCollection() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadCollection_KeepsUnknownFieldsOutOfTheWay(t *testing.T) {
	store := &rawStore{records: map[Collection][]json.RawMessage{
		Recipes: {json.RawMessage(`{"_id":"r1","name":"Tomato","categoryId":"c1","pdfPath":"a.pdf","__v":0}`)},
	}}

	got, err := LoadCollection[Recipe](context.Background(), store, Recipes)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if len(got) != 1 || got[0].PDFPath != "a.pdf" || !got[0].HasDocument() {
		t.Errorf("LoadCollection() = %+v", got)
	}
}

func TestLoadCollection_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	store := &rawStore{readErr: boom}

	if _, err := LoadCollection[Category](context.Background(), store, Categories); !errors.Is(err, boom) {
		t.Errorf("LoadCollection() error = %v, want %v", err, boom)
	}
}

func TestSaveCollection_FieldNames(t *testing.T) {
	store := &rawStore{records: map[Collection][]json.RawMessage{}}

	err := SaveCollection(context.Background(), store, Recipes, []Recipe{
		{ID: "r1", Name: "Tomato", CategoryID: "c1", PDFURL: "https://cdn.example.com/a.pdf"},
	})
	if err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(store.records[Recipes][0], &fields); err != nil {
		t.Fatalf("invalid record: %v", err)
	}
	for _, key := range []string{"_id", "name", "categoryId", "pdfUrl"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("record is missing %q: %v", key, fields)
		}
	}
	for _, key := range []string{"pdfPath", "userId", "imageUrl"} {
		if _, ok := fields[key]; ok {
			t.Errorf("empty %q should be omitted: %v", key, fields)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	owned := Category{ID: "c1", OwnerID: "u1"}
	legacy := Category{ID: "c2"}

	if !owned.VisibleTo("") || !legacy.VisibleTo("") {
		t.Error("an empty owner sees every record")
	}
	if !owned.VisibleTo("u1") || owned.VisibleTo("u2") {
		t.Error("owned records are visible to their owner only")
	}
	if legacy.VisibleTo("u1") {
		t.Error("unowned records are hidden from a scoped caller")
	}
}

func TestSaveCollection_KeepsWhatItCannotModel(t *testing.T) {
	legacy := json.RawMessage(`{"_id":{"$oid":"65a"},"name":"Old","categoryId":"c1"}`)
	untouched := json.RawMessage(`{"_id":"r1","name":"A","categoryId":"c1","pdfPath":"a.pdf","createdAt":"2024-01-01"}`)
	store := &rawStore{records: map[Collection][]json.RawMessage{
		Recipes: {
			untouched,
			legacy,
			json.RawMessage(`{"_id":"r2","name":"B","categoryId":"c1","imageUrl":"/uploads/b.png","__v":3}`),
			json.RawMessage(`{"_id":"r3","name":"C","categoryId":"c1"}`),
		},
	}}
	ctx := context.Background()

	all, err := LoadCollection[Recipe](ctx, store, Recipes)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("LoadCollection() = %+v, want 3 records", all)
	}
	all[1].Name = "B2"
	all[1].ImageURL = ""
	all = append(all[:2], Recipe{ID: "r4", Name: "D", CategoryID: "c1"})

	if err := SaveCollection(ctx, store, Recipes, all); err != nil {
		t.Fatalf("SaveCollection() failed: %v", err)
	}

	got := store.records[Recipes]
	if len(got) != 4 {
		t.Fatalf("saved %d records, want 4: %s", len(got), got)
	}
	if string(got[0]) != string(untouched) {
		t.Errorf("untouched record = %s, want %s", got[0], untouched)
	}
	if string(got[1]) != string(legacy) {
		t.Errorf("undecodable record = %s, want %s", got[1], legacy)
	}

	var updated map[string]any
	if err := json.Unmarshal(got[2], &updated); err != nil {
		t.Fatalf("invalid record: %v", err)
	}
	if updated["name"] != "B2" {
		t.Errorf("name = %v, want B2", updated["name"])
	}
	if updated["__v"] != float64(3) {
		t.Errorf("unknown field lost: %v", updated)
	}
	if _, ok := updated["imageUrl"]; ok {
		t.Errorf("cleared imageUrl came back: %v", updated)
	}

	var added Recipe
	if err := json.Unmarshal(got[3], &added); err != nil || added.ID != "r4" {
		t.Errorf("appended record = %s", got[3])
	}
}

func TestSaveCollection_PropagatesReadErrors(t *testing.T) {
	boom := errors.New("connection refused")
	store := &rawStore{readErr: boom}

	err := SaveCollection(context.Background(), store, Categories, []Category{{ID: "c1", Name: "Soups"}})
	if !errors.Is(err, boom) {
		t.Errorf("SaveCollection() error = %v, want %v", err, boom)
	}
}
