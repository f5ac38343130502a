package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("::nope", 0, nil)
	require.Error(t, err)

	c, err := NewClient("", 0, nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestImageCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/project/p1/image_count", r.URL.Path)
		io.WriteString(w, `{"project_id":"p1","total_images":12,"first_image_id":40}`)
	})

	got, err := c.ImageCount(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, 12, got.TotalImages)
	require.NotNil(t, got.FirstImageID)
	require.Equal(t, int64(40), *got.FirstImageID)
}

func TestFrameDecodesStringAnnotations(t *testing.T) {
	img := []byte("not-really-a-jpeg")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/project/p1/image/3", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"image_id":   77,
			"image_name": "cat.PNG",
			"yolo":       "0 0.5 0.5 0.2 0.4\nbad line\n1 0.1 0.1 0.1 0.1",
			"finished":   true,
			"labels":     []string{`["car","person"]`},
			"colors":     []string{`["#ff0000","#0000ff"]`},
			"image":      base64.StdEncoding.EncodeToString(img),
			"format":     "PNG",
		})
	})

	f, err := c.Frame(context.Background(), "p1", 3)
	require.NoError(t, err)
	require.Equal(t, int64(77), f.ImageID)
	require.True(t, f.Finished)
	require.Equal(t, img, f.Image)
	require.Equal(t, "png", f.Format)
	require.Equal(t, []string{"car", "person"}, f.Labels)
	require.Equal(t, []string{"#ff0000", "#0000ff"}, f.Colors)
	require.Len(t, f.Records, 2)
	require.Equal(t, 1, f.Records[1].LabelIndex)

	set := f.LabelSet()
	require.Equal(t, "#0000ff", set.ColorOf("person"))
}

func TestFrameDecodesRowAnnotationsAndPlainLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"image_id":1,"image_name":"a.jpg","yolo":[[0,0.5,0.5,0.2,0.4]],"finished":false,
			"labels":["car"],"colors":"[\"#123456\"]","image":"","format":""}`)
	})

	f, err := c.Frame(context.Background(), "p1", 1)
	require.NoError(t, err)
	require.Equal(t, []types.YOLORecord{{LabelIndex: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.4}}, f.Records)
	require.Equal(t, []string{"car"}, f.Labels)
	require.Equal(t, []string{"#123456"}, f.Colors)
	require.Equal(t, "jpeg", f.Format)
}

func TestFrameNullAnnotationsAndBadColors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"image_id":1,"yolo":null,"labels":["car"],"colors":42,"image":""}`)
	})

	f, err := c.Frame(context.Background(), "p1", 1)
	require.NoError(t, err)
	require.Empty(t, f.Records)
	require.Nil(t, f.Colors)
	require.Equal(t, labels.DefaultColor, f.LabelSet().ColorOf("car"))
}

func TestFrameNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Image not found"}`, http.StatusNotFound)
	})

	_, err := c.Frame(context.Background(), "p1", 99)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "Image not found", se.Detail())
}

func TestUpdateAnnotations(t *testing.T) {
	var got annotationUpdate
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/update_annotations/77", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"message":"Annotations updated successfully"}`)
	})

	lines := []string{"0 0.500000 0.500000 0.200000 0.400000"}
	require.NoError(t, c.UpdateAnnotations(context.Background(), 77, lines, true))
	require.Equal(t, lines, got.Annotations)
	require.True(t, got.Finished)
}

func TestUpdateAnnotationsSendsEmptyList(t *testing.T) {
	var body map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	require.NoError(t, c.UpdateAnnotations(context.Background(), 1, nil, false))
	require.Equal(t, []interface{}{}, body["annotations"])
}

func TestUpdateAnnotationsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.UpdateAnnotations(context.Background(), 1, nil, false)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.Code)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := NewClient(srv.URL, time.Second, nil)
	require.NoError(t, err)
	srv.Close()

	_, err = c.ImageCount(context.Background(), "p1")
	require.Error(t, err)
	var se *StatusError
	require.False(t, errors.As(err, &se))
}
