// Package annotator is a headless bounding-box annotation editor for projects
// hosted on the annotation backend.
//
// It loads one frame at a time, keeps its boxes in an in-memory store, lets a
// caller drive the canvas tools with plain pointer calls, renders the canvas to
// an image and saves the boxes back as YOLO lines.
//
// Basic usage:
//
//	cfg, err := annotator.LoadConfig("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	a, err := annotator.New(cfg, "project-id", nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := a.Open(ctx, 1); err != nil {
//		log.Fatal(err)
//	}
//
//	ed := a.Session().Editor()
//	ed.SelectTool(types.ToolDrawBox)
//	ed.Click(types.Point{X: 100, Y: 80})
//	ed.Click(types.Point{X: 300, Y: 240})
//
//	if err := a.Session().Save(ctx, false); err != nil {
//		log.Fatal(err)
//	}
//
// The package consists of these components:
//
//  1. Session (pkg/session): frame navigation, saving, labels and dataset requests
//  2. Editor (pkg/editor): canvas tools, hover and hit-testing
//  3. Render (pkg/render): draw commands and rasterization
//  4. Detection (pkg/detection): box proposals from a vision model
package annotator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/box-annotator/internal/config"
	"github.com/menta2k/box-annotator/internal/utils"
	"github.com/menta2k/box-annotator/pkg/backend"
	"github.com/menta2k/box-annotator/pkg/boxes"
	"github.com/menta2k/box-annotator/pkg/client"
	"github.com/menta2k/box-annotator/pkg/dataset"
	"github.com/menta2k/box-annotator/pkg/detection"
	"github.com/menta2k/box-annotator/pkg/editor"
	"github.com/menta2k/box-annotator/pkg/llamacpp"
	"github.com/menta2k/box-annotator/pkg/ollama"
	"github.com/menta2k/box-annotator/pkg/processing"
	"github.com/menta2k/box-annotator/pkg/render"
	"github.com/menta2k/box-annotator/pkg/session"
	"github.com/menta2k/box-annotator/pkg/types"
)

// Version of the annotator library
const Version = "1.0.0"

// Config is the annotator configuration.
type Config = config.Config

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads defaults, an optional YAML file and ANNOTATOR_* variables.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// ErrNoVision is returned by Suggest when no vision model is configured.
var ErrNoVision = errors.New("no vision model configured")

// Annotator wires the backend, session, renderer and proposer together.
type Annotator struct {
	cfg      *Config
	logger   *zap.Logger
	api      *backend.Client
	session  *session.Session
	detector *detection.Detector
	raster   *render.Rasterizer
	proc     *processing.Processor
}

// New builds an annotator for a project. logger and notifier may be nil. A
// vision client is created from cfg.Vision when a model is set.
func New(cfg *Config, projectID string, logger *zap.Logger, notifier session.Notifier) (*Annotator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api, err := backend.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second, logger)
	if err != nil {
		return nil, err
	}

	raster, err := render.NewRasterizer()
	if err != nil {
		return nil, err
	}

	opts := session.Options{
		Display: types.Size{Width: float64(cfg.Editor.DisplayWidth), Height: float64(cfg.Editor.DisplayHeight)},
		Editor: editor.Options{
			ZoomStep:   cfg.Editor.ZoomStep,
			MaxZoom:    cfg.Editor.MaxZoom,
			HandleSize: cfg.Editor.HandleSize,
		},
	}
	sess := session.New(projectID, api, opts, logger, notifier)
	sess.Store().SetOpacity(cfg.Editor.Opacity)

	a := &Annotator{
		cfg:     cfg,
		logger:  logger,
		api:     api,
		session: sess,
		raster:  raster,
		proc:    processing.NewProcessor(),
	}

	if cfg.Vision.Model != "" && cfg.Vision.URL != "" {
		vc, err := NewVisionClient(cfg.Vision.Backend, cfg.Vision.URL)
		if err != nil {
			return nil, err
		}
		a.detector = detection.NewDetector(vc, cfg.Vision.MinConfidence, logger)
	}
	return a, nil
}

// NewVisionClient creates the client for a vision backend name.
func NewVisionClient(name, url string) (client.VisionClient, error) {
	switch strings.ToLower(name) {
	case "ollama":
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown vision backend %q (use ollama or llamacpp)", name)
}

// Config returns the configuration in use.
func (a *Annotator) Config() *Config { return a.cfg }

// Session returns the frame session.
func (a *Annotator) Session() *session.Session { return a.session }

// Backend returns the REST client.
func (a *Annotator) Backend() *backend.Client { return a.api }

// HasVision reports whether Suggest can be used.
func (a *Annotator) HasVision() bool { return a.detector != nil }

// Open loads the project size and labels, then frame.
func (a *Annotator) Open(ctx context.Context, frame int) error {
	return a.session.Start(ctx, frame)
}

// Render draws the canvas, frame image included, as the editor currently shows it.
func (a *Annotator) Render() (image.Image, error) {
	bg, err := a.session.FrameImage()
	if err != nil {
		return nil, err
	}
	return a.raster.DrawSnapshot(a.session.Editor().Snapshot(), bg)
}

// ExportPreview renders the canvas and writes it to dir in the configured
// output format. An empty dir uses the configured output directory.
func (a *Annotator) ExportPreview(dir string) (string, error) {
	img, err := a.Render()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	format := utils.NormalizeFormat(a.cfg.Output.Format)
	name := a.frameBaseName()
	path := utils.GenerateOutputFilename(name, dir, "", "_preview", format)
	if err := a.proc.SaveImage(img, path, format, a.cfg.Output.Quality, false); err != nil {
		return "", fmt.Errorf("failed to save preview: %w", err)
	}
	a.logger.Info("preview written", zap.String("path", path), zap.String("size", utils.FileSize(path)))
	return path, nil
}

// ExportDataset writes the current frame's image and label file plus a
// data.yaml for the project labels under dir.
func (a *Annotator) ExportDataset(dir string) (dataset.Paths, string, error) {
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	cur := a.session.Current()
	if cur == nil {
		return dataset.Paths{}, "", session.ErrNoFrame
	}
	lines, err := a.session.Lines()
	if err != nil {
		return dataset.Paths{}, "", err
	}

	paths, err := dataset.WriteFrame(dir, dataset.Frame{
		Number:    a.session.Frame(),
		ImageName: cur.ImageName,
		Image:     cur.Image,
		Lines:     lines,
	})
	if err != nil {
		return paths, "", err
	}
	manifest, err := dataset.WriteManifest(dir, a.session.Labels().Names())
	if err != nil {
		return paths, "", err
	}
	return paths, manifest, nil
}

// Suggest asks the vision model for boxes on the current frame and appends
// the accepted ones. It returns the number of boxes added.
func (a *Annotator) Suggest(ctx context.Context) (int, error) {
	if a.detector == nil {
		return 0, ErrNoVision
	}
	img, err := a.session.FrameImage()
	if err != nil {
		return 0, err
	}
	b64, err := a.proc.PrepareImageForModel(img, "jpg", a.cfg.Vision.SendSize, a.cfg.Vision.SendQuality)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare image: %w", err)
	}

	proposed, err := a.detector.ProposeBoxes(ctx, a.cfg.Vision.Model, b64, a.session.Labels(), a.session.Display())
	if err != nil {
		return 0, err
	}
	return a.session.AddBoxes(proposed), nil
}

// Boxes returns the boxes of the current frame.
func (a *Annotator) Boxes() []boxes.BoundingBox {
	return a.session.Store().Boxes()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func (a *Annotator) frameBaseName() string {
	name := ""
	if cur := a.session.Current(); cur != nil {
		name = cur.ImageName
	}
	return utils.FrameBaseName(name, a.session.Frame())
}

// DefaultConfigPath returns the per-user configuration file path.
func DefaultConfigPath() string {
	return config.GetConfigPath()
}
