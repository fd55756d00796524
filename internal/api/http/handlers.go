package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"github.com/vadimbarashkov/shortlink/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// createURLRequest represents the request payload for creating a short URL.
// An omitted shortPath requests a generated one; an omitted expiration means
// the URL never expires.
type createURLRequest struct {
	URL        string `json:"url" validate:"required,url"`
	ShortPath  string `json:"shortPath" validate:"omitempty,len=4"`
	Expiration string `json:"expiration" validate:"omitempty,oneof=12h 7d forever"`
}

// createURLResponse represents the response payload for a successful create.
type createURLResponse struct {
	Success     bool   `json:"success"`
	ShortPath   string `json:"shortPath"`
	OriginalURL string `json:"originalUrl"`
	IsExisting  bool   `json:"isExisting"`
	ExpiresAt   *int64 `json:"expiresAt"`
	ShareURL    string `json:"shareUrl,omitempty"`
}

func toCreateURLResponse(res *service.CreateResult) createURLResponse {
	return createURLResponse{
		Success:     true,
		ShortPath:   res.URL.ShortPath,
		OriginalURL: res.URL.OriginalURL,
		IsExisting:  res.IsExisting,
		ExpiresAt:   res.URL.ExpiresAt,
	}
}

// handleCreateURL handles POST requests to create a short URL.
//
// The request must contain a valid absolute http/https URL and may supply a
// custom short path. Creating the same live URL twice reuses the existing
// record and reports it with isExisting set.
func handleCreateURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req createURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		expiration := models.Expiration(req.Expiration)
		if !expiration.Valid() {
			expiration = models.ExpirationForever
		}

		res, err := svc.Create(r.Context(), req.URL, req.ShortPath, expiration)
		if err != nil {
			renderCreateError(w, r, op, err)
			return
		}

		if res.IsExisting {
			render.Status(r, http.StatusOK)
		} else {
			render.Status(r, http.StatusCreated)
		}
		render.JSON(w, r, toCreateURLResponse(res))
	}
}

// createShareLinkRequest represents the request payload for creating a share
// link. Share links always expire, so "forever" is not accepted.
type createShareLinkRequest struct {
	URL        string `json:"url" validate:"required,url"`
	Expiration string `json:"expiration" validate:"omitempty,oneof=12h 7d"`
}

// handleCreateShareLink handles POST requests to create a short-lived share
// link with a generated short path. The response carries an absolute share
// URL built from the configured public base URL.
func handleCreateShareLink(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleCreateShareLink"

	return func(w http.ResponseWriter, r *http.Request) {
		var req createShareLinkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		expiration := models.Expiration(req.Expiration)
		if !expiration.Valid() {
			expiration = models.Expiration7d
		}

		res, err := svc.Create(r.Context(), req.URL, "", expiration)
		if err != nil {
			renderCreateError(w, r, op, err)
			return
		}

		resp := toCreateURLResponse(res)
		resp.ShareURL = strings.TrimRight(baseURL, "/") + "/" + res.URL.ShortPath

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, resp)
	}
}

func renderCreateError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrInvalidShortPath):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.BadRequestResponse)
	case errors.Is(err, service.ErrShortPathTaken):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ConflictResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

// handleGetURL handles GET requests to fetch the record behind a short path.
// A path that never existed and one that has expired are indistinguishable:
// both produce a not-found response.
func handleGetURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURL"

	return func(w http.ResponseWriter, r *http.Request) {
		shortPath := chi.URLParam(r, "shortPath")
		if len(shortPath) != models.ShortPathLength {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		url, err := svc.Resolve(r.Context(), shortPath)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, url)
	}
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// handleURLExists handles GET requests checking whether a short path resolves
// to a live record. It never reports an error for malformed paths, just false.
func handleURLExists(svc URLService) http.HandlerFunc {
	const op = "api.http.handleURLExists"

	return func(w http.ResponseWriter, r *http.Request) {
		shortPath := chi.URLParam(r, "shortPath")
		if len(shortPath) != models.ShortPathLength {
			render.Status(r, http.StatusOK)
			render.JSON(w, r, existsResponse{})
			return
		}

		exists, err := svc.Exists(r.Context(), shortPath)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, existsResponse{Exists: exists})
	}
}

// handleRedirect handles GET requests on a bare short path and redirects to
// the original URL.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortPath := chi.URLParam(r, "shortPath")
		if len(shortPath) != models.ShortPathLength {
			http.Error(w, "Link not found", http.StatusNotFound)
			return
		}

		url, err := svc.Resolve(r.Context(), shortPath)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				http.Error(w, "Link not found", http.StatusNotFound)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}
