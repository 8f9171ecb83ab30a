package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"perfeval/internal/platform/requestctx"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

const HeaderRequestID = "X-Request-ID"

// RequestID tags each request with an id, reusing the caller's header when
// it is present and short enough.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := requestctx.WithRequestID(r.Context(), id)
		ctx = requestctx.WithIP(ctx, clientIPKey(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
