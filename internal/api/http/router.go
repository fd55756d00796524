package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

// URLService defines the interface for the core URL lifecycle logic.
type URLService interface {
	// Create stores a mapping from a short path to the original URL, reusing
	// an existing live record for the same URL when one exists. An empty
	// shortPath requests a generated one.
	Create(ctx context.Context, originalURL, shortPath string, expiration models.Expiration) (*service.CreateResult, error)

	// Resolve returns the live record for the short path, or
	// database.ErrURLNotFound if it never existed or has expired.
	Resolve(ctx context.Context, shortPath string) (*models.URL, error)

	// Exists reports whether the short path resolves to a live record.
	Exists(ctx context.Context, shortPath string) (bool, error)
}

// getValidate initializes a new validator instance for validating incoming
// request payloads. It customizes tag name extraction from struct fields to
// match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and
// middleware configured. baseURL is used to build absolute share links.
func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Route("/api", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", handleCreateURL(urlSvc, validate))
			r.Get("/exists/{shortPath}", handleURLExists(urlSvc))
			r.Get("/{shortPath}", handleGetURL(urlSvc))
		})

		r.Post("/share-links", handleCreateShareLink(urlSvc, validate, baseURL))
	})

	r.Get("/{shortPath}", handleRedirect(urlSvc))

	return r
}
