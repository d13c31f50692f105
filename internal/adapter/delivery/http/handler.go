package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/skip2/go-qrcode"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
	"github.com/vadimbarashkov/slug-shortener/internal/slug"
)

const qrCodeSize = 256

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, routeNotFoundResponse)
}

func handleTooManyRequests(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, tooManyRequestsResponse)
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, in entity.ShortenInput) (*entity.URL, error)
	ResolveSlug(ctx context.Context, slug string) (*entity.Resolution, error)
	GetURLStats(ctx context.Context, slug string) (*entity.URLStats, error)
}

type urlHandler struct {
	useCase    urlUseCase
	publicURL  string
	trustProxy bool
}

func newURLHandler(useCase urlUseCase, publicURL string, trustProxy bool) *urlHandler {
	return &urlHandler{
		useCase:    useCase,
		publicURL:  strings.TrimSuffix(publicURL, "/"),
		trustProxy: trustProxy,
	}
}

// shortLink returns the public link of the slug. Without a configured public
// URL it is derived from the request.
func (h *urlHandler) shortLink(r *http.Request, s string) string {
	if h.publicURL != "" {
		return h.publicURL + "/" + s
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); h.trustProxy && proto != "" {
		scheme = strings.TrimSpace(strings.SplitN(proto, ",", 2)[0])
	}

	return fmt.Sprintf("%s://%s/%s", scheme, r.Host, s)
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), entity.ShortenInput{
		URL:           req.URL,
		ExpiresInDays: req.ExpiresInDays.days,
	})
	if err != nil {
		var validationErr *entity.ValidationError
		if errors.As(err, &validationErr) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, validationErrorResponse(validationErr))
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortenResponse(url, h.shortLink(r, url.Slug)))
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")

	if !slug.IsValid(s) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidSlugResponse)
		return
	}

	stats, err := h.useCase.GetURLStats(r.Context(), s)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toStatsResponse(stats))
}

func (h *urlHandler) getQRCode(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")

	if !slug.IsValid(s) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidSlugResponse)
		return
	}

	if _, err := h.useCase.GetURLStats(r.Context(), s); err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	png, err := qrcode.Encode(h.shortLink(r, s), qrcode.Medium, qrCodeSize)
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "inline; filename=qrcode.png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")

	if !slug.IsValid(s) {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	res, err := h.useCase.ResolveSlug(r.Context(), s)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if res.Expired {
		http.Error(w, "Gone", http.StatusGone)
		return
	}

	http.Redirect(w, r, res.Target, http.StatusFound)
}
