package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// Collection names one whole-array set of records.
type Collection string

const (
	Categories Collection = "categories"
	Recipes    Collection = "recipes"
	Users      Collection = "users"
)

// AllCollections lists every collection the server persists.
var AllCollections = []Collection{Categories, Recipes, Users}

// CollectionStore reads and writes whole collections.
//
// ReadAll returns an empty slice when the backing data is missing, empty or corrupt.
// WriteAll replaces the collection; concurrent writers race and the last one wins.
type CollectionStore interface {
	ReadAll(ctx context.Context, c Collection) ([]json.RawMessage, error)
	WriteAll(ctx context.Context, c Collection, records []json.RawMessage) error
}

// LoadCollection decodes every record of c into T. Records that do not decode are skipped.
func LoadCollection[T any](ctx context.Context, store CollectionStore, c Collection) ([]T, error) {
	raw, err := store.ReadAll(ctx, c)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			logrus.WithFields(logrus.Fields{
				"collection": c,
				"index":      i,
				"error":      err,
			}).Warn("Skipping record that does not decode")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Record is an entity persisted in a collection, identified by its "_id".
type Record interface {
	RecordID() string
}

// SaveCollection replaces the collection with records.
//
// The stored collection is read again and merged by id: records that do not decode are kept where
// they are, stored records whose id is missing from records are dropped, and the rest are
// rewritten in place. Fields T does not model survive the rewrite, and a record whose decoded
// value did not change is written back byte for byte. Records with new ids are appended.
func SaveCollection[T Record](ctx context.Context, store CollectionStore, c Collection, records []T) error {
	stored, err := store.ReadAll(ctx, c)
	if err != nil {
		return err
	}

	pending := make(map[string]json.RawMessage, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", c, err)
		}
		if _, dup := pending[r.RecordID()]; !dup {
			order = append(order, r.RecordID())
		}
		pending[r.RecordID()] = data
	}

	modeled := modeledFields(reflect.TypeOf((*T)(nil)).Elem())
	out := make([]json.RawMessage, 0, len(stored)+len(records))
	written := make(map[string]bool, len(records))
	for _, raw := range stored {
		var prev T
		if err := json.Unmarshal(raw, &prev); err != nil {
			out = append(out, raw)
			continue
		}
		next, ok := pending[prev.RecordID()]
		if !ok {
			continue
		}
		merged, err := mergeRecord(raw, prev, next, modeled)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", c, err)
		}
		out = append(out, merged)
		written[prev.RecordID()] = true
	}
	for _, id := range order {
		if !written[id] {
			out = append(out, pending[id])
		}
	}
	return store.WriteAll(ctx, c, out)
}

// mergeRecord overlays next onto the stored raw record, keeping keys T does not model.
func mergeRecord[T any](raw json.RawMessage, prev T, next json.RawMessage, modeled map[string]bool) (json.RawMessage, error) {
	if before, err := json.Marshal(prev); err == nil && bytes.Equal(before, next) {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return next, nil
	}
	var updated map[string]json.RawMessage
	if err := json.Unmarshal(next, &updated); err != nil {
		return nil, err
	}
	for key := range modeled {
		delete(fields, key)
	}
	for key, value := range updated {
		fields[key] = value
	}
	return json.Marshal(fields)
}

// modeledFields lists the JSON keys of a struct type.
func modeledFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = true
	}
	return fields
}
