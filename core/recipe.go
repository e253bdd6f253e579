package core

import (
	"context"
	"io"
)

type (
	// Recipe is a named PDF document filed under a category.
	//
	// Exactly one of PDFPath (local filename) and PDFURL (external object store) identifies the
	// document. PDFRef and ImageRef hold the object keys returned by ingestion.
	Recipe struct {
		ID         string `json:"_id"`
		Name       string `json:"name"`
		CategoryID string `json:"categoryId"`
		OwnerID    string `json:"userId,omitempty"`
		PDFPath    string `json:"pdfPath,omitempty"`
		PDFURL     string `json:"pdfUrl,omitempty"`
		PDFRef     string `json:"pdfRef,omitempty"`
		ImageURL   string `json:"imageUrl,omitempty"`
		ImageRef   string `json:"imageRef,omitempty"`
	}

	// Upload is a file received from a client, not yet validated.
	Upload struct {
		Filename    string
		ContentType string
		Size        int64
		Body        io.Reader
	}

	// UploadRecipeInput carries the fields of a recipe upload form.
	UploadRecipeInput struct {
		Name       string  `json:"name"`
		CategoryID string  `json:"categoryId"`
		Document   *Upload `json:"-"`
		Image      *Upload `json:"-"`
		ImageURL   string  `json:"imageUrl"`
	}

	// Document is a recipe PDF ready to be streamed to a client. Callers must close Body.
	// Filename is ASCII only; DisplayName keeps the recipe name as typed.
	Document struct {
		Body        io.ReadCloser
		ContentType string
		Filename    string
		DisplayName string
	}

	RecipeService interface {
		ListByCategory(ctx context.Context, categoryID, ownerID string) ([]Recipe, error)
		Upload(ctx context.Context, in UploadRecipeInput, ownerID string) (Recipe, error)
		Get(ctx context.Context, id, ownerID string) (Recipe, error)
		Delete(ctx context.Context, id, ownerID string) error
		ReplaceImage(ctx context.Context, id string, image *Upload, ownerID string) (Recipe, error)
		ServeDocument(ctx context.Context, id, ownerID string) (*Document, error)
	}
)

func (r Recipe) VisibleTo(ownerID string) bool {
	return ownerID == "" || r.OwnerID == ownerID
}

// HasDocument reports whether the recipe points at a primary document.
func (r Recipe) HasDocument() bool {
	return r.PDFPath != "" || r.PDFURL != ""
}

func (r Recipe) RecordID() string { return r.ID }
