package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/pkg/coords"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/types"
)

// ImageCount is the navigation bound of a project.
type ImageCount struct {
	ProjectID    string `json:"project_id"`
	TotalImages  int    `json:"total_images"`
	FirstImageID *int64 `json:"first_image_id"`
}

// Frame is one image of a project with its stored annotations.
type Frame struct {
	ImageID   int64
	ImageName string
	Records   []types.YOLORecord
	Finished  bool
	Labels    []string
	Colors    []string
	Image     []byte
	Format    string
}

// LabelSet builds the ordered label set delivered with the frame.
func (f *Frame) LabelSet() *labels.Set {
	return labels.NewSet(f.Labels, f.Colors)
}

type frameResponse struct {
	ImageID   int64           `json:"image_id"`
	ImageName string          `json:"image_name"`
	YOLO      json.RawMessage `json:"yolo"`
	Finished  bool            `json:"finished"`
	Labels    json.RawMessage `json:"labels"`
	Colors    json.RawMessage `json:"colors"`
	Image     string          `json:"image"`
	Format    string          `json:"format"`
}

type annotationUpdate struct {
	Annotations []string `json:"annotations"`
	Finished    bool     `json:"finished"`
}

// ImageCount returns the number of images in a project.
func (c *Client) ImageCount(ctx context.Context, projectID string) (*ImageCount, error) {
	var out ImageCount
	if err := c.doJSON(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID)+"/image_count", nil, &out); err != nil {
		return nil, fmt.Errorf("image count for project %s: %w", projectID, err)
	}
	return &out, nil
}

// Frame fetches a frame by its 1-based frame number. Malformed YOLO rows are
// logged and skipped.
func (c *Client) Frame(ctx context.Context, projectID string, frame int) (*Frame, error) {
	endpoint := fmt.Sprintf("/project/%s/image/%d", url.PathEscape(projectID), frame)
	var raw frameResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("frame %d of project %s: %w", frame, projectID, err)
	}

	img, err := base64.StdEncoding.DecodeString(raw.Image)
	if err != nil {
		return nil, fmt.Errorf("frame %d: failed to decode image: %w", frame, err)
	}

	records, err := decodeYOLO(raw.YOLO)
	if err != nil {
		c.logger.Warn("skipping malformed annotation rows", zap.Int("frame", frame), zap.Error(err))
	}

	names, err := decodeStringList(raw.Labels)
	if err != nil {
		c.logger.Warn("label metadata unreadable", zap.Int("frame", frame), zap.Error(err))
	}
	colors, err := decodeStringList(raw.Colors)
	if err != nil {
		c.logger.Warn("color metadata unreadable, using default color", zap.Int("frame", frame), zap.Error(err))
	}

	format := strings.ToLower(raw.Format)
	if format == "" {
		format = "jpeg"
	}

	return &Frame{
		ImageID:   raw.ImageID,
		ImageName: raw.ImageName,
		Records:   records,
		Finished:  raw.Finished,
		Labels:    names,
		Colors:    colors,
		Image:     img,
		Format:    format,
	}, nil
}

// UpdateAnnotations replaces the stored YOLO lines of an image.
func (c *Client) UpdateAnnotations(ctx context.Context, imageID int64, lines []string, finished bool) error {
	if lines == nil {
		lines = []string{}
	}
	payload := annotationUpdate{Annotations: lines, Finished: finished}
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/update_annotations/%d", imageID), payload, nil); err != nil {
		return fmt.Errorf("update annotations of image %d: %w", imageID, err)
	}
	return nil
}

// decodeYOLO accepts null, a newline separated string, or an array of numeric rows.
func decodeYOLO(raw json.RawMessage) ([]types.YOLORecord, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return coords.ParseYOLO(text)
	}
	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: unsupported yolo payload", coords.ErrMalformedLine)
	}
	return coords.RecordsFromRows(rows)
}

// decodeStringList accepts a JSON list of strings, a JSON string holding such a
// list, or a one-element list whose element holds such a list.
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 1 && strings.HasPrefix(strings.TrimSpace(list[0]), "[") {
			var inner []string
			if err := json.Unmarshal([]byte(list[0]), &inner); err == nil {
				return inner, nil
			}
		}
		return list, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("expected list of strings: %w", err)
	}
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, fmt.Errorf("expected encoded list of strings: %w", err)
	}
	return list, nil
}
