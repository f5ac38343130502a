package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/menta2k/box-annotator/pkg/labels"
)

// MinFinishedImages is the number of finished frames dataset generation needs.
const MinFinishedImages = 5

const datasetSuccess = "Dataset labeled successfully"

var providedPattern = regexp.MustCompile(`just \(?(\d+)`)

// DatasetResult is the outcome of a dataset generation request.
type DatasetResult struct {
	Labeled  bool
	Message  string
	Provided int
	Missing  int
}

// Labels returns the label set of a project.
func (c *Client) Labels(ctx context.Context, projectID string) ([]labels.Label, error) {
	var raw []labels.Label
	if err := c.doJSON(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID)+"/labels", nil, &raw); err != nil {
		return nil, fmt.Errorf("labels of project %s: %w", projectID, err)
	}
	return unpackLabels(raw), nil
}

// UpdateLabels replaces the label set of a project. Names and colors are sent
// as JSON-encoded lists in the labels and colors form fields.
func (c *Client) UpdateLabels(ctx context.Context, projectID string, ls []labels.Label) error {
	names := make([]string, len(ls))
	colors := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
		colors[i] = l.Color
		if !labels.IsValidColor(colors[i]) {
			colors[i] = labels.DefaultColor
		}
	}
	encNames, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}
	encColors, err := json.Marshal(colors)
	if err != nil {
		return fmt.Errorf("failed to encode colors: %w", err)
	}

	form := url.Values{}
	form.Add("labels", string(encNames))
	form.Add("colors", string(encColors))
	if err := c.doForm(ctx, http.MethodPut, "/project/"+url.PathEscape(projectID)+"/labels", form, nil); err != nil {
		return fmt.Errorf("update labels of project %s: %w", projectID, err)
	}
	return nil
}

// GenerateDataset asks the backend to build a training set from the finished
// frames. Too few finished frames is reported through the result, not as an error.
func (c *Client) GenerateDataset(ctx context.Context, projectID string) (*DatasetResult, error) {
	var msg string
	err := c.doJSON(ctx, http.MethodPost, "/project/"+url.PathEscape(projectID)+"/generate-dataset", nil, &msg)
	if err == nil {
		return &DatasetResult{Labeled: msg == datasetSuccess, Message: msg}, nil
	}

	var se *StatusError
	if errors.As(err, &se) {
		detail := se.Detail()
		if strings.Contains(detail, "Not enough finished images") {
			provided := 0
			if m := providedPattern.FindStringSubmatch(detail); m != nil {
				provided, _ = strconv.Atoi(m[1])
			}
			missing := MinFinishedImages - provided
			if missing < 0 {
				missing = 0
			}
			return &DatasetResult{Message: detail, Provided: provided, Missing: missing}, nil
		}
	}
	return nil, fmt.Errorf("generate dataset for project %s: %w", projectID, err)
}

// unpackLabels handles projects whose names and colors were stored as a single
// JSON-encoded list each.
func unpackLabels(raw []labels.Label) []labels.Label {
	if len(raw) != 1 || !strings.HasPrefix(strings.TrimSpace(raw[0].Name), "[") {
		return raw
	}
	var names, colors []string
	if err := json.Unmarshal([]byte(raw[0].Name), &names); err != nil {
		return raw
	}
	_ = json.Unmarshal([]byte(raw[0].Color), &colors)

	out := make([]labels.Label, len(names))
	for i, n := range names {
		c := labels.DefaultColor
		if i < len(colors) && labels.IsValidColor(colors[i]) {
			c = colors[i]
		}
		out[i] = labels.Label{Name: n, Color: c}
	}
	return out
}
