package service

import (
	"bytes"
	"context"
	blobmemory "recipe-server/blobs/memory"
	"recipe-server/core"
	"recipe-server/ingest"
	"recipe-server/stores/memory"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	pdfData = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngData = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
)

type fixture struct {
	store      core.CollectionStore
	blobs      *blobmemory.Store
	categories *CategoryService
	recipes    *RecipeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithBlobs(t, blobmemory.NewStore())
}

func newFixtureWithBlobs(t *testing.T, blobs *blobmemory.Store) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		store:      store,
		blobs:      blobs,
		categories: NewCategoryService(store),
		recipes:    NewRecipeService(store, blobs, ingest.New(blobs, 0)),
	}
}

func pdfUpload(name string) *core.Upload {
	return &core.Upload{Filename: name, ContentType: "application/pdf", Size: int64(len(pdfData)), Body: bytes.NewReader(pdfData)}
}

func pngUpload(name string) *core.Upload {
	return &core.Upload{Filename: name, ContentType: "image/png", Size: int64(len(pngData)), Body: bytes.NewReader(pngData)}
}

// seedCategories writes categories directly, bypassing the service.
func (f *fixture) seedCategories(t *testing.T, categories ...core.Category) {
	t.Helper()
	require.NoError(t, core.SaveCollection(context.Background(), f.store, core.Categories, categories))
}

func (f *fixture) upload(t *testing.T, name, categoryID, ownerID string) core.Recipe {
	t.Helper()
	r, err := f.recipes.Upload(context.Background(), core.UploadRecipeInput{
		Name:       name,
		CategoryID: categoryID,
		Document:   pdfUpload(name + ".pdf"),
	}, ownerID)
	require.NoError(t, err)
	return r
}
