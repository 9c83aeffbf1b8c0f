package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// CartSessionHeader identifies the visitor whose cart a request operates on.
const CartSessionHeader = "X-Cart-Session"

const maxTokenLength = 128

// CartSession resolves the visitor session from the request header, minting a
// new one when the header is absent or unusable. The id is echoed back so the
// storefront can keep sending it.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if !validToken(sessionID) {
				sessionID = uuid.NewString()
			}

			w.Header().Set(CartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validToken accepts 1-128 characters of [A-Za-z0-9_-].
func validToken(value string) bool {
	if value == "" || len(value) > maxTokenLength {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
