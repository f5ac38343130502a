package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"

	"github.com/menta2k/box-annotator/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func encode(t *testing.T, img image.Image, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true})
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestDecodeFrameFormats(t *testing.T) {
	p := NewProcessor()
	for _, format := range []string{"jpeg", "png", "webp"} {
		data := encode(t, createTestImage(64, 48), format)

		img, err := p.DecodeFrame(data)
		if err != nil {
			t.Fatalf("%s: DecodeFrame failed: %v", format, err)
		}
		if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
			t.Errorf("%s: expected 64x48, got %v", format, img.Bounds())
		}

		size, err := p.FrameSize(data)
		if err != nil {
			t.Fatalf("%s: FrameSize failed: %v", format, err)
		}
		if size != (types.Size{Width: 64, Height: 48}) {
			t.Errorf("%s: expected 64x48, got %+v", format, size)
		}
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.DecodeFrame([]byte("definitely not an image")); err != ErrUnknownFormat {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := p.FrameSize(nil); err != ErrUnknownFormat {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(createTestImage(800, 400), "jpg", 200, 80)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("not a jpeg: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Errorf("expected 200x100, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestClampBox(t *testing.T) {
	got, ok := ClampBox(types.Box{X: -0.1, Y: 0.5, W: 0.3, H: 0.8})
	if !ok {
		t.Fatal("expected box to survive clamping")
	}
	want := types.Box{X: 0, Y: 0.5, W: 0.2, H: 0.5}
	if diff(got.X, want.X) || diff(got.Y, want.Y) || diff(got.W, want.W) || diff(got.H, want.H) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if _, ok := ClampBox(types.Box{X: 1.2, Y: 0, W: 0.1, H: 0.1}); ok {
		t.Error("box outside the image should be dropped")
	}
}

func TestFit(t *testing.T) {
	cases := []struct {
		size, bounds, want types.Size
	}{
		{types.Size{Width: 2000, Height: 1000}, types.Size{Width: 1000, Height: 800}, types.Size{Width: 1000, Height: 500}},
		{types.Size{Width: 1000, Height: 2000}, types.Size{Width: 1000, Height: 800}, types.Size{Width: 400, Height: 800}},
		{types.Size{Width: 300, Height: 200}, types.Size{Width: 1000, Height: 800}, types.Size{Width: 300, Height: 200}},
		{types.Size{Width: 3000, Height: 200}, types.Size{Width: 1000}, types.Size{Width: 1000, Height: 200.0 / 3}},
	}
	for _, c := range cases {
		got := Fit(c.size, c.bounds)
		if diff(got.Width, c.want.Width) || diff(got.Height, c.want.Height) {
			t.Errorf("Fit(%+v, %+v) = %+v, want %+v", c.size, c.bounds, got, c.want)
		}
	}
}

func TestSaveImageFormats(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createTestImage(32, 32)

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 85, false); err != nil {
			t.Fatalf("%s: SaveImage failed: %v", format, err)
		}
		loaded, err := p.LoadImage(path)
		if err != nil {
			t.Fatalf("%s: LoadImage failed: %v", format, err)
		}
		if loaded.Bounds().Dx() != 32 {
			t.Errorf("%s: expected width 32, got %d", format, loaded.Bounds().Dx())
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s: file missing: %v", format, err)
		}
	}
}

func TestLoadImageSmartRejectsMissingFile(t *testing.T) {
	p := NewProcessor()
	if _, err := p.LoadImageSmart(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := p.LoadImageFromURL("ftp://example.com/a.png"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func diff(a, b float64) bool {
	d := a - b
	return d > 1e-9 || d < -1e-9
}
