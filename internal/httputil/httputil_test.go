package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/?rate=22050&format=mp3&bad=x", nil)

	assert.Equal(t, 22050, QueryInt(r, "rate", 0))
	assert.Equal(t, 7, QueryInt(r, "missing", 7))
	assert.Equal(t, 7, QueryInt(r, "bad", 7))
	assert.Equal(t, "mp3", QueryString(r, "format", "wav"))
	assert.Equal(t, "wav", QueryString(r, "missing", "wav"))
}

func TestParseJSON(t *testing.T) {
	var body struct {
		Text string `json:"text"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"hello"}`))
	r.Header.Set("Content-Type", "application/json")
	require.NoError(t, ParseJSON(r, &body))
	assert.Equal(t, "hello", body.Text)

	// Empty bodies are not an error.
	body.Text = ""
	r = httptest.NewRequest("POST", "/", nil)
	require.NoError(t, ParseJSON(r, &body))
	assert.Empty(t, body.Text)

	// Malformed JSON is.
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"text":`))
	r.Header.Set("Content-Type", "application/json")
	assert.Error(t, ParseJSON(r, &body))
}

func TestErrorWithKind(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWithKind(rec, 400, "empty_text", "text must not be empty")

	require.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"code":400,"kind":"empty_text","message":"text must not be empty"}`, rec.Body.String())
}

func TestUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	Unauthorized(rec, "")

	require.Equal(t, 401, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}
