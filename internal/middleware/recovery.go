package middleware

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/ytvaala/ytvaala/internal/router"
)

const internalErrorBody = `{"success":false,"error":{"message":"Internal Server Error","code":"INTERNAL_SERVER_ERROR","statusCode":500}}`

// Recoverer is a middleware that recovers from panics.
// It logs the panic and returns a 500 error envelope. A middleware that
// calls next twice is logged as a contract violation. In development the
// stack is also printed to stderr and a contract violation is re-panicked
// so it cannot go unnoticed.
func Recoverer(logger *slog.Logger, isDev bool) func(http.Handler) http.Handler {
	return recoverer(logger, isDev, os.Stderr)
}

func recoverer(logger *slog.Logger, isDev bool, stderr io.Writer) func(http.Handler) http.Handler {
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

				msg := "panic recovered"
				err, _ := rvr.(error)
				violation := err != nil && errors.Is(err, router.ErrNextCalledTwice)
				if violation {
					msg = "middleware_contract_violation"
				}

				stack := debug.Stack()
				logger.Error(msg,
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprint(rvr)),
					slog.String("stack", string(stack)),
				)

				if isDev {
					_, _ = fmt.Fprintf(stderr, "panic: %v\n\n%s", rvr, stack)
					if violation {
						panic(rvr)
					}
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
