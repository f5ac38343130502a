package annotator

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/internal/utils"
	"github.com/menta2k/box-annotator/pkg/coords"
	"github.com/menta2k/box-annotator/pkg/dataset"
	"github.com/menta2k/box-annotator/pkg/detection"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/render"
	"github.com/menta2k/box-annotator/pkg/types"
)

// ImageProposals are model proposals for an image outside the project, such
// as a local file or a URL.
type ImageProposals struct {
	Source    string
	Image     image.Image
	Size      types.Size
	Labels    *labels.Set
	Proposals []types.Proposal
}

// Lines returns the proposals as YOLO lines for the label set they were made for.
func (p *ImageProposals) Lines() []string {
	recs := detection.Records(p.Proposals, p.Labels)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = coords.FormatYOLO(r)
	}
	return out
}

// LoadImage loads a file path or http(s) URL.
func (a *Annotator) LoadImage(source string) (image.Image, error) {
	img, err := a.proc.LoadImageSmart(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}
	return img, nil
}

// ProposeImage asks the vision model for boxes of set on the image at source.
// A nil set uses the session labels.
func (a *Annotator) ProposeImage(ctx context.Context, source string, set *labels.Set) (*ImageProposals, error) {
	if a.detector == nil {
		return nil, ErrNoVision
	}
	if set == nil {
		set = a.session.Labels()
	}
	img, err := a.LoadImage(source)
	if err != nil {
		return nil, err
	}
	b64, err := a.proc.PrepareImageForModel(img, "jpg", a.cfg.Vision.SendSize, a.cfg.Vision.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	props, err := a.detector.Propose(ctx, a.cfg.Vision.Model, b64, set)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &ImageProposals{
		Source:    source,
		Image:     img,
		Size:      types.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
		Labels:    set,
		Proposals: props,
	}, nil
}

// RenderProposals draws the proposals over their image at natural size.
func (a *Annotator) RenderProposals(p *ImageProposals) (image.Image, error) {
	snap := render.Snapshot{
		Boxes:   detection.ToBoxes(p.Proposals, p.Labels, p.Size),
		Opacity: a.cfg.Editor.Opacity,
		Canvas:  p.Size,
		Zoom:    1,
	}
	return a.raster.DrawSnapshot(snap, p.Image)
}

// ProposalFiles lists the files written by ExportProposals.
type ProposalFiles struct {
	Labels   string
	Manifest string
	Preview  string
}

// ExportProposals writes the proposals' label file, a data.yaml and a
// rendered preview under dir. An empty dir uses the configured output directory.
func (a *Annotator) ExportProposals(dir string, p *ImageProposals) (ProposalFiles, error) {
	var out ProposalFiles
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	paths, err := dataset.WriteFrame(dir, dataset.Frame{ImageName: p.Source, Lines: p.Lines()})
	if err != nil {
		return out, err
	}
	out.Labels = paths.Labels
	if out.Manifest, err = dataset.WriteManifest(dir, p.Labels.Names()); err != nil {
		return out, err
	}

	img, err := a.RenderProposals(p)
	if err != nil {
		return out, err
	}
	format := utils.NormalizeFormat(a.cfg.Output.Format)
	preview := utils.GenerateOutputFilename(utils.FrameBaseName(p.Source, 0), dir, "", "_proposals", format)
	if err := a.proc.SaveImage(img, preview, format, a.cfg.Output.Quality, false); err != nil {
		return out, fmt.Errorf("failed to save preview: %w", err)
	}
	out.Preview = preview
	a.logger.Info("proposals exported", zap.String("labels", out.Labels), zap.Int("boxes", len(p.Proposals)))
	return out, nil
}

// TestVision asks the model to describe an image, to check that it receives
// images at all. An empty source uses the current frame.
func (a *Annotator) TestVision(ctx context.Context, source string) (string, error) {
	if a.detector == nil {
		return "", ErrNoVision
	}
	var img image.Image
	var err error
	if source == "" {
		img, err = a.session.FrameImage()
	} else {
		img, err = a.LoadImage(source)
	}
	if err != nil {
		return "", err
	}
	b64, err := a.proc.PrepareImageForModel(img, "jpg", a.cfg.Vision.SendSize, a.cfg.Vision.SendQuality)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}
	return a.detector.TestVision(ctx, a.cfg.Vision.Model, b64)
}
