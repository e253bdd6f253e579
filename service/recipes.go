package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"recipe-server/core"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
)

// LocalBlobPrefix is the URL path local blobs are served under.
const LocalBlobPrefix = "/uploads/"

type uploadForm struct {
	Name       string       `json:"name"`
	CategoryID string       `json:"categoryId"`
	File       *core.Upload `json:"file"`
	ImageURL   string       `json:"imageUrl"`
}

func (f uploadForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&f.CategoryID, validation.Required),
		validation.Field(&f.File, validation.Required.Error("a PDF file is required")),
		validation.Field(&f.ImageURL, validation.RuneLength(0, 2048)),
	)
}

type RecipeService struct {
	store    core.CollectionStore
	blobs    core.BlobStore
	ingestor core.Ingestor
	client   *http.Client
}

func NewRecipeService(store core.CollectionStore, blobs core.BlobStore, ingestor core.Ingestor) *RecipeService {
	return &RecipeService{
		store:    store,
		blobs:    blobs,
		ingestor: ingestor,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

func (s *RecipeService) ListByCategory(ctx context.Context, categoryID, ownerID string) ([]core.Recipe, error) {
	all, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err != nil {
		return nil, err
	}

	out := make([]core.Recipe, 0)
	for _, r := range all {
		if r.CategoryID == categoryID && r.VisibleTo(ownerID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *RecipeService) Get(ctx context.Context, id, ownerID string) (core.Recipe, error) {
	all, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err != nil {
		return core.Recipe{}, err
	}
	if i := indexRecipe(all, id, ownerID); i >= 0 {
		return all[i], nil
	}
	return core.Recipe{}, fmt.Errorf("%w: recipe %s", core.ErrNotFound, id)
}

// Upload stores a new recipe. The category must exist in the caller's scope. An image file takes
// precedence over an image URL.
func (s *RecipeService) Upload(ctx context.Context, in core.UploadRecipeInput, ownerID string) (core.Recipe, error) {
	form := uploadForm{
		Name:       strings.TrimSpace(in.Name),
		CategoryID: strings.TrimSpace(in.CategoryID),
		File:       in.Document,
		ImageURL:   strings.TrimSpace(in.ImageURL),
	}
	if err := form.Validate(); err != nil {
		return core.Recipe{}, invalid(err)
	}

	log := logrus.WithFields(logrus.Fields{
		"category_id": form.CategoryID,
		"user_id":     ownerID,
	})

	categories, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return core.Recipe{}, err
	}
	if indexCategory(categories, form.CategoryID, ownerID) < 0 {
		log.Warn("Rejected upload for unknown category")
		return core.Recipe{}, fmt.Errorf("%w: category %s does not exist", core.ErrValidation, form.CategoryID)
	}

	recipe := core.Recipe{
		ID:         core.NewID(),
		Name:       form.Name,
		CategoryID: form.CategoryID,
		OwnerID:    ownerID,
	}

	docRef, err := s.ingestor.Ingest(ctx, in.Document, core.BlobPDF)
	if err != nil {
		return core.Recipe{}, err
	}
	if docRef.URL != "" {
		recipe.PDFURL = docRef.URL
		recipe.PDFRef = docRef.Ref
	} else {
		recipe.PDFPath = docRef.Ref
	}

	if in.Image != nil {
		imgRef, err := s.ingestor.Ingest(ctx, in.Image, core.BlobImage)
		if err != nil {
			s.discardBlob(ctx, docRef.Ref)
			return core.Recipe{}, err
		}
		recipe.ImageURL, recipe.ImageRef = imageLocation(imgRef)
	} else {
		recipe.ImageURL = form.ImageURL
	}

	all, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err == nil {
		all = append(all, recipe)
		err = core.SaveCollection(ctx, s.store, core.Recipes, all)
	}
	if err != nil {
		s.discardBlob(ctx, docRef.Ref)
		if recipe.ImageRef != "" {
			s.discardBlob(ctx, recipe.ImageRef)
		}
		return core.Recipe{}, err
	}

	log.WithField("recipe_id", recipe.ID).Info("Recipe uploaded")
	return recipe, nil
}

// Delete removes the recipe record, then best-effort deletes its locally stored blobs.
// Blobs in an external object store are kept.
func (s *RecipeService) Delete(ctx context.Context, id, ownerID string) error {
	all, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err != nil {
		return err
	}
	i := indexRecipe(all, id, ownerID)
	if i < 0 {
		return fmt.Errorf("%w: recipe %s", core.ErrNotFound, id)
	}

	recipe := all[i]
	all = append(all[:i], all[i+1:]...)
	if err := core.SaveCollection(ctx, s.store, core.Recipes, all); err != nil {
		return err
	}

	if recipe.PDFPath != "" {
		s.discardLocalBlob(ctx, recipe.PDFPath)
	}
	if isLocalImage(recipe) {
		s.discardLocalBlob(ctx, recipe.ImageRef)
	}

	logrus.WithFields(logrus.Fields{"recipe_id": id, "user_id": ownerID}).Info("Recipe deleted")
	return nil
}

func (s *RecipeService) ReplaceImage(ctx context.Context, id string, image *core.Upload, ownerID string) (core.Recipe, error) {
	if image == nil {
		return core.Recipe{}, fmt.Errorf("%w: an image file is required", core.ErrValidation)
	}

	all, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err != nil {
		return core.Recipe{}, err
	}
	i := indexRecipe(all, id, ownerID)
	if i < 0 {
		return core.Recipe{}, fmt.Errorf("%w: recipe %s", core.ErrNotFound, id)
	}

	ref, err := s.ingestor.Ingest(ctx, image, core.BlobImage)
	if err != nil {
		return core.Recipe{}, err
	}

	previous := all[i]
	all[i].ImageURL, all[i].ImageRef = imageLocation(ref)
	if err := core.SaveCollection(ctx, s.store, core.Recipes, all); err != nil {
		s.discardBlob(ctx, ref.Ref)
		return core.Recipe{}, err
	}

	if isLocalImage(previous) {
		s.discardLocalBlob(ctx, previous.ImageRef)
	}

	logrus.WithFields(logrus.Fields{"recipe_id": id, "user_id": ownerID}).Info("Recipe image replaced")
	return all[i], nil
}

// ServeDocument opens the recipe PDF. Remote documents are streamed through this server rather
// than redirected to, so the caller can force inline display headers.
func (s *RecipeService) ServeDocument(ctx context.Context, id, ownerID string) (*core.Document, error) {
	recipe, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("recipe_id", id)

	doc := &core.Document{
		ContentType: "application/pdf",
		Filename:    documentFilename(recipe),
		DisplayName: documentDisplayName(recipe),
	}

	switch {
	case recipe.PDFPath != "":
		if s.blobs.Remote() {
			log.Warn("Recipe document is on local disk but local blob storage is not configured")
			return nil, fmt.Errorf("%w: document for recipe %s", core.ErrNotFound, id)
		}
		doc.Body, err = s.blobs.Open(ctx, recipe.PDFPath)
	case recipe.PDFURL != "":
		if recipe.PDFRef != "" && s.blobs.Remote() {
			doc.Body, err = s.blobs.Open(ctx, recipe.PDFRef)
			if err == nil {
				return doc, nil
			}
			log.WithError(err).Warn("Failed to open document from blob store, fetching its URL")
		}
		doc.Body, err = s.fetch(ctx, recipe.PDFURL)
	default:
		return nil, fmt.Errorf("%w: recipe %s has no document", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *RecipeService) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid document url: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: remote document %s", core.ErrNotFound, url)
		}
		return nil, fmt.Errorf("failed to fetch document: remote returned %s", resp.Status)
	}
	return resp.Body, nil
}

// discardBlob removes a blob written during a failed operation.
func (s *RecipeService) discardBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		logrus.WithError(err).WithField("blob", ref).Warn("Failed to discard blob")
	}
}

func (s *RecipeService) discardLocalBlob(ctx context.Context, ref string) {
	if s.blobs.Remote() {
		return
	}
	s.discardBlob(ctx, ref)
}

func indexRecipe(all []core.Recipe, id, ownerID string) int {
	for i, r := range all {
		if r.ID == id && r.VisibleTo(ownerID) {
			return i
		}
	}
	return -1
}

func imageLocation(ref core.BlobRef) (url, key string) {
	if ref.URL != "" {
		return ref.URL, ref.Ref
	}
	return LocalBlobPrefix + ref.Ref, ref.Ref
}

func isLocalImage(r core.Recipe) bool {
	return r.ImageRef != "" && strings.HasPrefix(r.ImageURL, LocalBlobPrefix)
}
