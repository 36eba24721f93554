package recoverer

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shorturls/pkg/middleware"
	"github.com/vadimbarashkov/shorturls/pkg/remotelog"
	"github.com/vadimbarashkov/shorturls/pkg/response"
)

type eventLogger interface {
	Log(stack, level, pkg, message string)
}

// New returns middleware that turns a panic into a 500 JSON response.
// http.ErrAbortHandler is re-panicked so the server can abort the connection.
func New(logger *slog.Logger, events eventLogger) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error(
						"something went wrong, panic occurred",
						slog.Group(op, slog.Any("err", err)),
					)
					events.Log(remotelog.StackBackend, remotelog.LevelFatal, remotelog.PackageMiddleware,
						fmt.Sprintf("Unhandled error: %v", err))

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, response.ServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
