package categories

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"recipe-server/core"
	"recipe-server/handlers/auth"
	"recipe-server/middleware"
	"recipe-server/service"
	"recipe-server/stores/memory"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newRouter(store core.CollectionStore) http.Handler {
	svc := service.NewCategoryService(store)
	r := chi.NewRouter()
	r.Get("/api/categories", HandleList(svc))
	r.Post("/api/categories", HandleCreate(svc))
	r.Put("/api/categories/{id}", HandleUpdate(svc))
	r.Delete("/api/categories/{id}", HandleDelete(svc))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeCategory(t *testing.T, rr *httptest.ResponseRecorder) core.Category {
	t.Helper()
	var c core.Category
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return c
}

func TestHandleList_Empty(t *testing.T) {
	h := newRouter(memory.NewStore())

	rr := do(t, h, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	h := newRouter(memory.NewStore())

	rr := do(t, h, http.MethodPost, "/api/categories", `{"name":"  Soups "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	created := decodeCategory(t, rr)
	if created.Name != "Soups" || created.ID == "" {
		t.Fatalf("unexpected category: %+v", created)
	}
	if !strings.Contains(rr.Body.String(), `"_id"`) {
		t.Errorf("body should carry _id: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodPut, "/api/categories/"+created.ID, `{"name":"Hot Soups","imageUrl":"https://img.example.com/a.png"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	updated := decodeCategory(t, rr)
	if updated.Name != "Hot Soups" || updated.ImageURL != "https://img.example.com/a.png" {
		t.Errorf("unexpected update: %+v", updated)
	}

	rr = do(t, h, http.MethodPut, "/api/categories/"+created.ID, `{"name":"Hot Soups"}`)
	if got := decodeCategory(t, rr).ImageURL; got != "https://img.example.com/a.png" {
		t.Errorf("omitted imageUrl should keep the image, got %q", got)
	}

	rr = do(t, h, http.MethodPut, "/api/categories/"+created.ID, `{"name":"Hot Soups","imageUrl":""}`)
	if got := decodeCategory(t, rr).ImageURL; got != "" {
		t.Errorf("empty imageUrl should clear the image, got %q", got)
	}

	rr = do(t, h, http.MethodDelete, "/api/categories/"+created.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/categories", "")
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("list after delete = %s, want []", got)
	}
}

func TestCategoryErrors(t *testing.T) {
	h := newRouter(memory.NewStore())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"blank name", http.MethodPost, "/api/categories", `{"name":"   "}`, http.StatusBadRequest},
		{"invalid json", http.MethodPost, "/api/categories", `{"name":`, http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/api/categories/missing", `{"name":"x"}`, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/categories/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected an error body, got %s", rr.Body.String())
			}
		})
	}
}

func TestCategoryUpdate_BlankNameKeepsRecord(t *testing.T) {
	store := memory.NewStore()
	h := newRouter(store)

	created := decodeCategory(t, do(t, h, http.MethodPost, "/api/categories", `{"name":"Soups"}`))

	rr := do(t, h, http.MethodPut, "/api/categories/"+created.ID, `{"name":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	all, err := core.LoadCollection[core.Category](context.Background(), store, core.Categories)
	if err != nil {
		t.Fatalf("LoadCollection() failed: %v", err)
	}
	if len(all) != 1 || all[0] != created {
		t.Errorf("stored categories = %+v, want [%+v]", all, created)
	}
}

func TestCategory_ScopedByToken(t *testing.T) {
	store := memory.NewStore()
	tokens := auth.NewManager("test-secret")
	svc := service.NewCategoryService(store)

	r := chi.NewRouter()
	r.Use(middleware.AuthJWT(tokens))
	r.Get("/api/categories", HandleList(svc))
	r.Post("/api/categories", HandleCreate(svc))

	tokenFor := func(id string) string {
		tok, err := tokens.Issue(core.User{ID: id, Username: id, Role: core.RoleUser})
		if err != nil {
			t.Fatalf("Issue() failed: %v", err)
		}
		return tok
	}
	send := func(method, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/categories", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	alice, bob := tokenFor("alice"), tokenFor("bob")
	if rr := send(http.MethodPost, `{"name":"Alice's"}`, alice); rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	if rr := send(http.MethodPost, `{"name":"Bob's"}`, bob); rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	var list []core.Category
	if err := json.Unmarshal(send(http.MethodGet, "", alice).Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid list body: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Alice's" || list[0].OwnerID != "alice" {
		t.Errorf("alice sees %+v", list)
	}

	if rr := send(http.MethodGet, "", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
