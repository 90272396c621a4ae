package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

// APIKeyInfo describes a provisioned administrative credential.
type APIKeyInfo struct {
	ID      string
	Name    string
	KeyHash string
	Scopes  []string
}

// APIKeyRepository resolves API keys by their peppered hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashAPIKey derives the stored lookup hash for a raw key using an
// HMAC-SHA256 pepper, so a leaked database dump alone cannot be replayed.
func HashAPIKey(raw, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyAuth returns a middleware that authenticates requests with the
// X-API-Key header against the repository. Unauthenticated requests get 401.
func APIKeyAuth(keys APIKeyRepository, pepper string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			raw := req.Header.Get(apiKeyHeader)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			hash := HashAPIKey(raw, pepper)
			info, err := keys.FindByHash(req.Context(), hash)
			if err != nil {
				zctx.From(req.Context()).Warn("api key rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(info.KeyHash), []byte(hash)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
