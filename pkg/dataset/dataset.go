// Package dataset writes annotated frames to disk in the YOLO directory layout:
// images/<name>, labels/<base>.txt and a data.yaml manifest at the root.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/box-annotator/internal/utils"
)

// Manifest is the data.yaml read by YOLO trainers.
type Manifest struct {
	Path    string   `yaml:"path"`
	Train   string   `yaml:"train"`
	Predict string   `yaml:"predict"`
	Val     string   `yaml:"val"`
	NC      int      `yaml:"nc"`
	Names   []string `yaml:"names"`
}

// NewManifest returns the manifest for a label list with the standard split directories.
func NewManifest(names []string) Manifest {
	return Manifest{
		Path:    "./",
		Train:   "images/train",
		Predict: "images/predict",
		Val:     "images/val",
		NC:      len(names),
		Names:   append([]string{}, names...),
	}
}

// Frame is one image with its saved annotation lines.
type Frame struct {
	Number    int
	ImageName string
	Image     []byte
	Lines     []string
}

// Paths lists the files written for a frame. Image is empty when no image
// bytes were given.
type Paths struct {
	Labels string
	Image  string
}

// ErrEmptyDir is returned when no output directory is configured.
var ErrEmptyDir = errors.New("dataset: output directory is empty")

// WriteFrame writes a frame's label file, and its image when present, under dir.
func WriteFrame(dir string, f Frame) (Paths, error) {
	if dir == "" {
		return Paths{}, ErrEmptyDir
	}

	base := utils.FrameBaseName(f.ImageName, f.Number)
	var out Paths

	labelsDir := filepath.Join(dir, "labels")
	if err := utils.EnsureDir(labelsDir); err != nil {
		return out, fmt.Errorf("failed to create labels dir: %w", err)
	}
	out.Labels = filepath.Join(labelsDir, base+".txt")
	body := strings.Join(f.Lines, "\n")
	if body != "" {
		body += "\n"
	}
	if err := os.WriteFile(out.Labels, []byte(body), 0644); err != nil {
		return out, fmt.Errorf("failed to write labels: %w", err)
	}

	if len(f.Image) == 0 {
		return out, nil
	}
	imagesDir := filepath.Join(dir, "images")
	if err := utils.EnsureDir(imagesDir); err != nil {
		return out, fmt.Errorf("failed to create images dir: %w", err)
	}
	name := utils.SanitizeFilename(filepath.Base(f.ImageName))
	if name == "" {
		name = base + ".jpg"
	}
	out.Image = filepath.Join(imagesDir, name)
	if err := os.WriteFile(out.Image, f.Image, 0644); err != nil {
		return out, fmt.Errorf("failed to write image: %w", err)
	}
	return out, nil
}

// WriteManifest writes data.yaml for the label list and returns its path.
func WriteManifest(dir string, names []string) (string, error) {
	if dir == "" {
		return "", ErrEmptyDir
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create dataset dir: %w", err)
	}

	data, err := yaml.Marshal(NewManifest(names))
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(dir, "data.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a data.yaml.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
