// Package detection turns vision-model replies into box proposals for the
// labels of the current project.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/client"
	"github.com/menta2k/box-annotator/pkg/coords"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/processing"
	"github.com/menta2k/box-annotator/pkg/types"
)

// ErrNoLabels is returned when a project has no labels to propose boxes for.
var ErrNoLabels = errors.New("detection: project has no labels")

// DefaultMinConfidence drops proposals the model is unsure about.
const DefaultMinConfidence = 0.25

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

const promptTemplate = `You are an object detector for an image annotation tool.

Find every object in the image that belongs to one of these labels:
%s

Return JSON only:
{
  "objects": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence (<= 20 words)"
}

HARD RULES
- "label" must be copied exactly from the list above. Skip objects that match no label.
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- Boxes should tightly include each object. One entry per object instance.
- If nothing matches, return {"objects": [], "description": "..."}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// BuildPrompt renders the detection prompt for a label list.
func BuildPrompt(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return fmt.Sprintf(promptTemplate, strings.TrimRight(b.String(), "\n"))
}

// Detector asks a vision model for boxes and keeps the usable ones.
type Detector struct {
	client        client.VisionClient
	minConfidence float64
	logger        *zap.Logger
}

// NewDetector creates a new detector with a vision client. A non-positive
// minConfidence selects DefaultMinConfidence.
func NewDetector(client client.VisionClient, minConfidence float64, logger *zap.Logger) *Detector {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{client: client, minConfidence: minConfidence, logger: logger}
}

// MinConfidence returns the acceptance threshold.
func (d *Detector) MinConfidence() float64 { return d.minConfidence }

// Propose returns the model's proposals for set, most confident first.
// Labels are matched case-insensitively and rewritten to their canonical
// spelling; boxes are clipped to the image.
func (d *Detector) Propose(ctx context.Context, model, imageB64 string, set *labels.Set) ([]types.Proposal, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrNoLabels
	}

	reply, err := d.client.DetectObjects(ctx, model, BuildPrompt(set.Names()), imageB64)
	if err != nil {
		return nil, fmt.Errorf("detect objects: %w", err)
	}
	if reply == nil {
		return nil, nil
	}

	out := d.filter(reply.Objects, set)
	d.logger.Debug("proposals filtered",
		zap.Int("received", len(reply.Objects)),
		zap.Int("kept", len(out)),
		zap.String("description", reply.Description))
	return out, nil
}

// ProposeBoxes is Propose followed by placement in display space. The boxes
// carry their label color and are ready for boxes.Store.Append.
func (d *Detector) ProposeBoxes(ctx context.Context, model, imageB64 string, set *labels.Set, display types.Size) ([]boxes.BoundingBox, error) {
	props, err := d.Propose(ctx, model, imageB64, set)
	if err != nil {
		return nil, err
	}
	return ToBoxes(props, set, display), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

func (d *Detector) filter(in []types.Proposal, set *labels.Set) []types.Proposal {
	canon := make(map[string]string, set.Len())
	for _, n := range set.Names() {
		canon[strings.ToLower(strings.TrimSpace(n))] = n
	}

	out := make([]types.Proposal, 0, len(in))
	for _, p := range in {
		name, ok := canon[strings.ToLower(strings.TrimSpace(p.Label))]
		if !ok {
			d.logger.Debug("dropping proposal with unknown label", zap.String("label", p.Label))
			continue
		}
		if p.Confidence < d.minConfidence {
			continue
		}
		box, ok := processing.ClampBox(p.Box)
		if !ok {
			continue
		}
		out = append(out, types.Proposal{Label: name, Confidence: p.Confidence, Box: box})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// ToBoxes places proposals in display space with their label colors.
func ToBoxes(props []types.Proposal, set *labels.Set, display types.Size) []boxes.BoundingBox {
	out := make([]boxes.BoundingBox, 0, len(props))
	for _, p := range props {
		out = append(out, boxes.BoundingBox{
			Points:  coords.BoxFromNormalized(p.Box, display),
			Label:   p.Label,
			Color:   set.ColorOf(p.Label),
			Visible: true,
		})
	}
	return out
}

// Records converts proposals to YOLO rows. Proposals whose label is not in
// set are skipped.
func Records(props []types.Proposal, set *labels.Set) []types.YOLORecord {
	out := make([]types.YOLORecord, 0, len(props))
	for _, p := range props {
		idx := coords.LabelIndex(set, p.Label)
		if idx < 0 {
			continue
		}
		out = append(out, p.Box.ToRecord(idx))
	}
	return out
}
