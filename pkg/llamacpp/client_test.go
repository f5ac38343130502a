package llamacpp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectObjects(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"objects\":[{\"label\":\"person\",\"confidence\":0.7,\"box\":{\"x\":0.2,\"y\":0.2,\"w\":0.1,\"h\":0.3}},]}"}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	set, err := c.DetectObjects(context.Background(), "qwen2-vl", "find people", "AAAA")
	require.NoError(t, err)
	require.Len(t, set.Objects, 1)
	require.Equal(t, "person", set.Objects[0].Label)
	require.Equal(t, "qwen2-vl", got.Model)
	require.False(t, got.Stream)

	parts := got.Messages[0].Content.([]interface{})
	require.Len(t, parts, 2)
	image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	require.Equal(t, "data:image/jpeg;base64,AAAA", image["url"])
}

func TestSimpleQueryArrayContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"a red car"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	text, err := c.SimpleQuery(context.Background(), "m", "what is this?", "")
	require.NoError(t, err)
	require.Equal(t, "a red car", text)
}

func TestServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.DetectObjects(context.Background(), "m", "p", "")
	require.ErrorContains(t, err, "status 503")
}

func TestEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.SimpleQuery(context.Background(), "m", "p", "")
	require.ErrorContains(t, err, "no choices")
}
