package httperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem(t *testing.T) {
	w := httptest.NewRecorder()
	ErrRateLimited.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify", nil))
	resp := w.Result()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	var p Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, ErrRateLimited, p)
	assert.True(t, p.Temporary())
	assert.False(t, ErrBodyTooLarge.Temporary())
	assert.Equal(t, "HTTP 400 [urn:webapkverify:problem:read-failed]: Failed to read request body: eof", ReadError(errors.New("eof")).Error())
}
