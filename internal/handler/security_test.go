package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testPepper = "test-pepper"

func protectedEcho(keys APIKeyRepository) http.Handler {
	return APIKeyAuth(keys, testPepper)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	raw := "secret-key"
	keys := &mockKeyRepo{info: &APIKeyInfo{
		ID:      "default",
		Name:    "Test key",
		KeyHash: HashAPIKey(raw, testPepper),
	}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", raw)
	rec := httptest.NewRecorder()
	protectedEcho(keys).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	protectedEcho(&mockKeyRepo{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_UnknownKey(t *testing.T) {
	keys := &mockKeyRepo{err: assert.AnError}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	protectedEcho(keys).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHashAPIKey_DependsOnPepper(t *testing.T) {
	assert.NotEqual(t, HashAPIKey("key", "pepper-a"), HashAPIKey("key", "pepper-b"))
	assert.Equal(t, HashAPIKey("key", "pepper-a"), HashAPIKey("key", "pepper-a"))
}
