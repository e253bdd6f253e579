// Package maintenance holds one-off data tasks run from the command line instead of the server.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"recipe-server/core"

	"github.com/sirupsen/logrus"
)

// DefaultCategories are the Hebrew category names a fresh install starts with.
var DefaultCategories = []string{
	"מנות ראשונות",
	"מנות עיקריות",
	"קינוחים",
	"שתיה",
	"סלטים",
	"מרקים",
}

// SeedCategories inserts DefaultCategories when the store holds no category yet. It returns the
// number of categories created.
func SeedCategories(ctx context.Context, store core.CollectionStore, ownerID string) (int, error) {
	existing, err := core.LoadCollection[core.Category](ctx, store, core.Categories)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logrus.WithField("categories", len(existing)).Info("Categories already present, skipping seed")
		return 0, nil
	}

	categories := make([]core.Category, 0, len(DefaultCategories))
	for _, name := range DefaultCategories {
		categories = append(categories, core.Category{ID: core.NewID(), Name: name, OwnerID: ownerID})
	}
	if err := core.SaveCollection(ctx, store, core.Categories, categories); err != nil {
		return 0, err
	}

	logrus.WithField("categories", len(categories)).Info("Categories seeded")
	return len(categories), nil
}

// SeedUser registers a user unless the username is taken. It reports whether a user was created.
func SeedUser(ctx context.Context, accounts core.AccountService, username, password string) (bool, error) {
	user, err := accounts.Register(ctx, username, password)
	if errors.Is(err, core.ErrConflict) {
		logrus.WithField("username", username).Info("User already exists, no changes made")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to seed user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User seeded")
	return true, nil
}

// AssignOwner sets ownerID on every category and recipe that has no owner yet. It returns how
// many records of each kind were changed.
func AssignOwner(ctx context.Context, store core.CollectionStore, ownerID string) (categories, recipes int, err error) {
	if ownerID == "" {
		return 0, 0, fmt.Errorf("%w: owner id is required", core.ErrValidation)
	}

	allCategories, err := core.LoadCollection[core.Category](ctx, store, core.Categories)
	if err != nil {
		return 0, 0, err
	}
	for i := range allCategories {
		if allCategories[i].OwnerID == "" {
			allCategories[i].OwnerID = ownerID
			categories++
		}
	}

	allRecipes, err := core.LoadCollection[core.Recipe](ctx, store, core.Recipes)
	if err != nil {
		return 0, 0, err
	}
	for i := range allRecipes {
		if allRecipes[i].OwnerID == "" {
			allRecipes[i].OwnerID = ownerID
			recipes++
		}
	}

	if categories > 0 {
		if err := core.SaveCollection(ctx, store, core.Categories, allCategories); err != nil {
			return 0, 0, err
		}
	}
	if recipes > 0 {
		if err := core.SaveCollection(ctx, store, core.Recipes, allRecipes); err != nil {
			return categories, 0, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"owner_id":   ownerID,
		"categories": categories,
		"recipes":    recipes,
	}).Info("Assigned owner to unowned records")
	return categories, recipes, nil
}
