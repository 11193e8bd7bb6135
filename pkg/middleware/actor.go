package middleware

import (
	"net/http"

	"marketplace-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor extracts the authenticated caller set by the upstream auth layer.
// This service does not authenticate; the gateway in front of it does and
// forwards the identity in X-Actor-Id / X-Actor-Role.
func Actor(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorHeader := r.Header.Get("X-Actor-Id")
			if actorHeader == "" {
				utils.ResponseUnauthorized(w, "Missing actor identity")
				return
			}

			actorID, err := uuid.Parse(actorHeader)
			if err != nil {
				logger.Warn("Invalid actor ID header",
					zap.String("actor_id", actorHeader),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid actor identity")
				return
			}

			role := r.Header.Get("X-Actor-Role")
			if role == "" {
				role = "customer"
			}

			ctx := utils.SetActorContext(r.Context(), actorID, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
