package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/domain/auth"
	"storefront/pkg/httpmiddleware"
)

type identityKey struct{}

// identityFrom returns the verified identity stored in the context, or the
// anonymous identity when authentication did not run or found no token.
func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey{}).(auth.Identity)
	return id
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// tokenClaims is the claim set minted by the external auth service: subject
// is the user id, plus a display name and a staff flag.
type tokenClaims struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens issued by the external auth
// service and turns their claims into an auth.Identity.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier with the shared signing secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify parses and validates the token string.
func (v *TokenVerifier) Verify(token string) (auth.Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return auth.Identity{}, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return auth.Identity{}, errors.New("token has no subject")
	}
	return auth.Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Admin:  claims.Admin,
	}, nil
}

// Authenticate resolves the Authorization header into a request identity.
// Requests without a bearer token pass through as anonymous; per-route
// capability checks decide whether that is acceptable. A token that is
// present but invalid is rejected outright.
func Authenticate(v *TokenVerifier) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeAuthError(w, "Invalid authorization header")
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				writeAuthError(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"` + msg + `","status":401}` + "\n"))
}
