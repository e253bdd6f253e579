package core

import "context"

type (
	// Category groups recipes. OwnerID is only set when the access filter created the record.
	Category struct {
		ID       string `json:"_id"`
		Name     string `json:"name"`
		OwnerID  string `json:"userId,omitempty"`
		ImageURL string `json:"imageUrl,omitempty"`
	}

	// CategoryService is the category API the HTTP handlers depend on.
	CategoryService interface {
		List(ctx context.Context, ownerID string) ([]Category, error)
		Get(ctx context.Context, id, ownerID string) (Category, error)
		Create(ctx context.Context, name, imageURL, ownerID string) (Category, error)
		// Update renames a category. A nil imageURL keeps the current image, an empty one clears it.
		Update(ctx context.Context, id, name string, imageURL *string, ownerID string) (Category, error)
		// Delete removes the category and every recipe that references it.
		Delete(ctx context.Context, id, ownerID string) error
	}
)

// VisibleTo reports whether the category is in scope for ownerID. An empty ownerID sees everything.
func (c Category) VisibleTo(ownerID string) bool {
	return ownerID == "" || c.OwnerID == ownerID
}

func (c Category) RecordID() string { return c.ID }
