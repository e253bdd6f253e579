package service

import (
	"context"
	"fmt"
	"recipe-server/core"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
)

type categoryInput struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

func (in categoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&in.ImageURL, validation.RuneLength(0, 2048)),
	)
}

type CategoryService struct {
	store core.CollectionStore
}

func NewCategoryService(store core.CollectionStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	all, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return nil, err
	}

	out := make([]core.Category, 0, len(all))
	for _, c := range all {
		if c.VisibleTo(ownerID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id, ownerID string) (core.Category, error) {
	all, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return core.Category{}, err
	}
	if i := indexCategory(all, id, ownerID); i >= 0 {
		return all[i], nil
	}
	return core.Category{}, fmt.Errorf("%w: category %s", core.ErrNotFound, id)
}

func (s *CategoryService) Create(ctx context.Context, name, imageURL, ownerID string) (core.Category, error) {
	in := categoryInput{Name: strings.TrimSpace(name), ImageURL: strings.TrimSpace(imageURL)}
	if err := in.Validate(); err != nil {
		return core.Category{}, invalid(err)
	}

	all, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return core.Category{}, err
	}

	category := core.Category{
		ID:       core.NewID(),
		Name:     in.Name,
		OwnerID:  ownerID,
		ImageURL: in.ImageURL,
	}
	all = append(all, category)
	if err := core.SaveCollection(ctx, s.store, core.Categories, all); err != nil {
		return core.Category{}, err
	}

	logrus.WithFields(logrus.Fields{
		"category_id": category.ID,
		"user_id":     ownerID,
	}).Info("Category created")
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name string, imageURL *string, ownerID string) (core.Category, error) {
	in := categoryInput{Name: strings.TrimSpace(name)}
	if imageURL != nil {
		in.ImageURL = strings.TrimSpace(*imageURL)
	}
	if err := in.Validate(); err != nil {
		return core.Category{}, invalid(err)
	}

	all, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return core.Category{}, err
	}
	i := indexCategory(all, id, ownerID)
	if i < 0 {
		return core.Category{}, fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}

	all[i].Name = in.Name
	if imageURL != nil {
		all[i].ImageURL = in.ImageURL
	}
	if err := core.SaveCollection(ctx, s.store, core.Categories, all); err != nil {
		return core.Category{}, err
	}

	logrus.WithFields(logrus.Fields{"category_id": id, "user_id": ownerID}).Info("Category updated")
	return all[i], nil
}

// Delete removes the category and, within the same owner scope, every recipe filed under it.
// The recipes' blobs are left where they are.
func (s *CategoryService) Delete(ctx context.Context, id, ownerID string) error {
	log := logrus.WithFields(logrus.Fields{"category_id": id, "user_id": ownerID})

	all, err := core.LoadCollection[core.Category](ctx, s.store, core.Categories)
	if err != nil {
		return err
	}
	i := indexCategory(all, id, ownerID)
	if i < 0 {
		return fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}

	all = append(all[:i], all[i+1:]...)
	if err := core.SaveCollection(ctx, s.store, core.Categories, all); err != nil {
		return err
	}

	recipes, err := core.LoadCollection[core.Recipe](ctx, s.store, core.Recipes)
	if err != nil {
		return err
	}
	kept := make([]core.Recipe, 0, len(recipes))
	orphanedBlobs := 0
	for _, r := range recipes {
		if r.CategoryID == id && r.VisibleTo(ownerID) {
			if r.HasDocument() {
				orphanedBlobs++
			}
			continue
		}
		kept = append(kept, r)
	}

	removed := len(recipes) - len(kept)
	if removed > 0 {
		if err := core.SaveCollection(ctx, s.store, core.Recipes, kept); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"recipes_removed": removed,
		"blobs_orphaned":  orphanedBlobs,
	}).Info("Category deleted")
	return nil
}

func indexCategory(all []core.Category, id, ownerID string) int {
	for i, c := range all {
		if c.ID == id && c.VisibleTo(ownerID) {
			return i
		}
	}
	return -1
}
