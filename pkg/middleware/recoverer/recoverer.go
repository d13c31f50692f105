// Package recoverer turns handler panics into JSON server error responses.
package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

// New returns a middleware that recovers from panics in next, logs them and
// answers with status 500 and body rendered as JSON.
func New(logger *slog.Logger, body any) func(http.Handler) http.Handler {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				httplog.LogEntrySetField(r.Context(), "panic", slog.AnyValue(rvr))
				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op, slog.Any("err", rvr), slog.String("stack", string(debug.Stack()))),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
