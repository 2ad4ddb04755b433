package middleware

import (
	"net/http"

	"dance-ops/internal/authz"

	"go.uber.org/zap"
)

// Authorize checks the session role against the casbin policy. It must run after
// RequireAuth. Shadow mode logs denials and lets the request through.
func Authorize(a *authz.Authorizer, log *zap.Logger, object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r)
			allowed, enforced, err := a.Authorize(role, object, action)
			if err != nil {
				log.Error("authz check failed", zap.String("role", role), zap.String("object", object), zap.Error(err))
				if enforced {
					writeError(w, http.StatusInternalServerError, "authorization failed")
					return
				}
			}
			if !allowed {
				if enforced {
					writeError(w, http.StatusForbidden, "forbidden: insufficient permissions")
					return
				}
				log.Info("authz shadow deny",
					zap.String("role", role),
					zap.String("object", object),
					zap.String("action", action),
					zap.String("path", r.URL.Path),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
