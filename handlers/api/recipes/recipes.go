package recipes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"recipe-server/core"
	"recipe-server/handlers/api"
	"recipe-server/middleware"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// contentDisposition keeps the ASCII filename for old clients and adds the UTF-8 name as an
// RFC 5987 extended parameter.
func contentDisposition(doc *core.Document) string {
	value := fmt.Sprintf("inline; filename=%q", doc.Filename)
	if doc.DisplayName == "" || doc.DisplayName == doc.Filename {
		return value
	}
	return value + "; filename*=UTF-8''" + encodeExtValue(doc.DisplayName)
}

func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
			strings.IndexByte("!#$&+-.^_`|~", c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// formMemory is how much of a multipart body is buffered in memory before spilling to temp files.
const formMemory = 8 << 20

func HandleListByCategory(svc core.RecipeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID := chi.URLParam(r, "categoryId")

		recipes, err := svc.ListByCategory(r.Context(), categoryID, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, recipes)
	}
}

func HandleGet(svc core.RecipeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipe, err := svc.Get(r.Context(), chi.URLParam(r, "id"), middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, recipe)
	}
}

// HandleUpload accepts a multipart form with the fields file, image, name, categoryId and
// imageUrl. maxBody caps the whole request.
func HandleUpload(svc core.RecipeService, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, maxBody) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		document, err := formUpload(r, "file")
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if document != nil {
			defer document.close()
		}
		image, err := formUpload(r, "image")
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if image != nil {
			defer image.close()
		}

		in := core.UploadRecipeInput{
			Name:       r.FormValue("name"),
			CategoryID: r.FormValue("categoryId"),
			ImageURL:   r.FormValue("imageUrl"),
		}
		if document != nil {
			in.Document = document.Upload
		}
		if image != nil {
			in.Image = image.Upload
		}

		recipe, err := svc.Upload(r.Context(), in, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		render.JSON(w, r, recipe)
	}
}

func HandleReplaceImage(svc core.RecipeService, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r, maxBody) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		image, err := formUpload(r, "image")
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		var upload *core.Upload
		if image != nil {
			defer image.close()
			upload = image.Upload
		}

		recipe, err := svc.ReplaceImage(r.Context(), chi.URLParam(r, "id"), upload, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, recipe)
	}
}

// HandleServeDocument streams the recipe PDF with headers that make browsers display it inline.
func HandleServeDocument(svc core.RecipeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := svc.ServeDocument(r.Context(), id, middleware.OwnerID(r.Context()))
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		defer doc.Body.Close()

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", contentDisposition(doc))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, doc.Body); err != nil {
			logrus.WithError(err).WithField("recipe_id", id).Warn("Failed to stream document")
		}
	}
}

func HandleDelete(svc core.RecipeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id"), middleware.OwnerID(r.Context())); err != nil {
			api.WriteError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"ok": true})
	}
}

// parseForm reads the multipart body, writing the error response itself when it fails.
func parseForm(w http.ResponseWriter, r *http.Request, maxBody int64) bool {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	err := r.ParseMultipartForm(formMemory)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.Error(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, http.ErrNotMultipart):
		api.Error(w, r, http.StatusBadRequest, "expected a multipart/form-data body")
	default:
		logrus.WithError(err).Debug("Failed to parse multipart form")
		api.Error(w, r, http.StatusBadRequest, "invalid multipart form")
	}
	return false
}

type formFile struct {
	*core.Upload
	file multipart.File
}

func (f *formFile) close() {
	f.file.Close()
}

// formUpload returns the named file part, or nil when the form has none.
func formUpload(r *http.Request, field string) (*formFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not read %s: %v", core.ErrValidation, field, err)
	}
	return &formFile{
		Upload: &core.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		},
		file: file,
	}, nil
}
