package httpmw

import (
	"context"
	"net/http"

	"github.com/hives-africa/realtime-service/internal/auth"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// AuthMiddleware проверяет Bearer-токен и кладёт Identity в контекст запроса.
func AuthMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := verifier.Verify(auth.TokenFromRequest(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyIdentity, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) auth.Identity {
	if v := ctx.Value(ctxKeyIdentity); v != nil {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}
