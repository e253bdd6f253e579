package categories

import (
	"net/http"
	"recipe-server/core"
	"recipe-server/handlers/api"
	"recipe-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type categoryRequest struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"`
}

func HandleList(svc core.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.List(r.Context(), middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, categories)
	}
}

func HandleCreate(svc core.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}

		imageURL := ""
		if req.ImageURL != nil {
			imageURL = *req.ImageURL
		}
		category, err := svc.Create(r.Context(), req.Name, imageURL, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, category)
	}
}

// HandleUpdate renames a category. Omitting imageUrl keeps the current image and an empty
// string clears it.
func HandleUpdate(svc core.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req categoryRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}

		category, err := svc.Update(r.Context(), id, req.Name, req.ImageURL, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, category)
	}
}

func HandleDelete(svc core.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := svc.Delete(r.Context(), id, middleware.OwnerID(r.Context())); err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"ok": true})
	}
}
