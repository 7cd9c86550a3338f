package middleware

import (
	"context"
	"net/http"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/auth"
	"github.com/tulepito/pito-cloud-canteen-sub008/pkg/response"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID    string
	Role      auth.UserRole
	CompanyID string
	PartnerID string
	Email     string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

// Authenticate verifies the bearer token and stores its claims on the
// request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, secret)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "valid bearer token required")
				return
			}
			authCtx := &AuthContext{
				UserID:    claims.UserID,
				Role:      claims.Role,
				CompanyID: claims.CompanyID,
				PartnerID: claims.PartnerID,
				Email:     claims.Email,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set. Admin passes every check.
func RequireRole(roles ...auth.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[auth.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, ok := GetAuthContext(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if authCtx.Role != auth.RoleAdmin {
				if _, ok := allowed[authCtx.Role]; !ok {
					response.Error(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
