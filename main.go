package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"recipe-server/blobs"
	"recipe-server/config"
	"recipe-server/core"
	"recipe-server/handlers/api/categories"
	"recipe-server/handlers/api/recipes"
	"recipe-server/handlers/auth"
	"recipe-server/ingest"
	"recipe-server/maintenance"
	authMiddleware "recipe-server/middleware"
	"recipe-server/service"
	"recipe-server/stores"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type server struct {
	cfg        config.Config
	categories *service.CategoryService
	recipes    *service.RecipeService
	accounts   *service.AccountService
	tokens     *auth.Manager
	oauth      *auth.OAuth
	uploadsDir string
}

func handlePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]bool{"ok": true})
	}
}

// handleUploads serves single stored blobs. Directories are never listed. Image URLs are
// embedded in pages without credentials, so with the access filter on only images are served
// here and documents go through the owner-checked recipe routes.
func handleUploads(dir string, imagesOnly bool) http.HandlerFunc {
	root := http.Dir(dir)

	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.HasSuffix(name, "/") || (imagesOnly && !ingest.Allows(core.BlobImage, name)) {
			http.NotFound(w, r)
			return
		}

		f, err := root.Open("/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}

func setupRouter(s *server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/ping", handlePing())

	if s.uploadsDir != "" {
		r.Get("/uploads/*", handleUploads(s.uploadsDir, s.cfg.Auth.Required))
	}

	// Every multipart body holds at most a document and an image.
	maxBody := 2*s.cfg.Blob.MaxUploadSize + 1<<20

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlePing())

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.HandleRegister(s.accounts, s.tokens))
			r.Post("/login", auth.HandleLogin(s.accounts, s.tokens))
			r.With(authMiddleware.AuthJWT(s.tokens)).Get("/me", auth.HandleMe())
			r.Get("/oauth/login", s.oauth.HandleLogin)
			r.Get("/oauth/callback", s.oauth.HandleCallback)
		})

		r.Group(func(r chi.Router) {
			if s.cfg.Auth.Required {
				r.Use(authMiddleware.AuthJWT(s.tokens))
			}

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categories.HandleList(s.categories))
				r.Post("/", categories.HandleCreate(s.categories))
				r.Put("/{id}", categories.HandleUpdate(s.categories))
				r.Delete("/{id}", categories.HandleDelete(s.categories))
			})

			r.Get("/recipes/{categoryId}", recipes.HandleListByCategory(s.recipes))
			r.Post("/upload", recipes.HandleUpload(s.recipes, maxBody))
			r.Route("/recipe/{id}", func(r chi.Router) {
				r.Get("/", recipes.HandleServeDocument(s.recipes))
				r.Delete("/", recipes.HandleDelete(s.recipes))
				r.Get("/meta", recipes.HandleGet(s.recipes))
				r.Put("/image", recipes.HandleReplaceImage(s.recipes, maxBody))
			})
		})
	})

	return r
}

// runMaintenance executes the tasks requested on the command line. It reports whether any ran.
func runMaintenance(ctx context.Context, store core.CollectionStore, accounts core.AccountService, seed bool, seedUser, seedPassword, assignOwner string) (bool, error) {
	ran := false
	if seedUser != "" {
		ran = true
		if _, err := maintenance.SeedUser(ctx, accounts, seedUser, seedPassword); err != nil {
			return ran, err
		}
	}
	if seed {
		ran = true
		if _, err := maintenance.SeedCategories(ctx, store, assignOwner); err != nil {
			return ran, err
		}
	}
	if assignOwner != "" {
		ran = true
		if _, _, err := maintenance.AssignOwner(ctx, store, assignOwner); err != nil {
			return ran, err
		}
	}
	return ran, nil
}

func closeStore(store core.CollectionStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch c := store.(type) {
	case interface{ Close(context.Context) error }:
		err = c.Close(ctx)
	case io.Closer:
		err = c.Close()
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to close storage")
	}
}

func waitForShutdown(srv *http.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":4000", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	seed := flag.Bool("seed", false, "Insert the default categories when none exist, then exit.")
	seedUser := flag.String("seed-user", "", "Create this user unless it exists, then exit.")
	seedPassword := flag.String("seed-password", "", "Password for -seed-user.")
	assignOwner := flag.String("assign-owner", "", "Assign this user id to unowned categories and recipes, then exit.")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	ctx := context.Background()

	store, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		logrus.WithField("event", "open storage").Fatal(err)
	}
	defer closeStore(store)

	accounts := service.NewAccountService(store)

	ran, err := runMaintenance(ctx, store, accounts, *seed, *seedUser, *seedPassword, *assignOwner)
	if err != nil {
		logrus.WithField("event", "maintenance").Fatal(err)
	}
	if ran {
		return
	}

	blobStore, err := blobs.GetBlobStore(ctx, cfg.Blob)
	if err != nil {
		logrus.WithField("event", "open blob storage").Fatal(err)
	}

	if cfg.Auth.Required && cfg.Auth.JWTSecret == "" {
		logrus.Fatal("AUTH_REQUIRED is set but JWT_SECRET is empty")
	}
	tokens := auth.NewManager(cfg.Auth.JWTSecret)

	s := &server{
		cfg:        cfg,
		categories: service.NewCategoryService(store),
		recipes:    service.NewRecipeService(store, blobStore, ingest.New(blobStore, cfg.Blob.MaxUploadSize)),
		accounts:   accounts,
		tokens:     tokens,
		oauth:      auth.NewOAuth(ctx, cfg.Auth, accounts, tokens),
	}
	if local, ok := blobStore.(interface{ Dir() string }); ok {
		s.uploadsDir = local.Dir()
	}

	srv := &http.Server{
		Addr:              *listenAddress,
		Handler:           setupRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"addr":         *listenAddress,
		"authRequired": cfg.Auth.Required,
	}).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(srv)
}
