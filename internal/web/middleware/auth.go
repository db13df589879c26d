package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/logging"
)

// authError matches the shape of every other API error body.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	errMissingKey = authError{
		Error:   "missing API key",
		Message: "This request needs an API key",
		Action:  "Send the key in the X-API-Key header or as a Bearer token",
		Code:    "AUTH_MISSING_KEY",
	}
	errInvalidKey = authError{
		Error:   "invalid API key",
		Message: "The API key was not accepted",
		Action:  "Check the key with your administrator",
		Code:    "AUTH_INVALID_KEY",
	}
)

// APIKeyAuth guards the API when cfg.RequireAPIKey is set. The key comes
// from X-API-Key or an "Authorization: Bearer" header. With the requirement
// on and no keys configured every request is refused.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerOrHeaderKey(r)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, errMissingKey)
			case !keyAllowed(key, cfg.APIKeys):
				reject(w, r, http.StatusForbidden, errInvalidKey)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func bearerOrHeaderKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func reject(w http.ResponseWriter, r *http.Request, status int, body authError) {
	logging.FromContext(r.Context()).Warn("request refused",
		"reason", body.Code,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ClientIP(r),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// keyAllowed walks every configured key so timing does not reveal a match.
func keyAllowed(key string, allowed []string) bool {
	match := 0
	for _, k := range allowed {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
