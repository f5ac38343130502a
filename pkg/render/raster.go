package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/menta2k/box-annotator/pkg/types"
)

// Rasterizer paints draw commands onto an RGBA image, optionally over the
// frame image scaled to the canvas size.
type Rasterizer struct {
	font  *truetype.Font
	faces map[float64]font.Face
}

// NewRasterizer loads the embedded Go Regular face.
func NewRasterizer() (*Rasterizer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Rasterizer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Draw rasterizes cmds for a canvas of the given size. Commands are in canvas
// space and the zoom/pan transform is applied to both the background and the
// overlay. background may be nil.
func (r *Rasterizer) Draw(cmds []Command, canvas types.Size, zoom float64, pan types.Point, background image.Image) (image.Image, error) {
	w, h := int(math.Round(canvas.Width)), int(math.Round(canvas.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas size %vx%v", canvas.Width, canvas.Height)
	}
	if zoom <= 0 {
		zoom = 1
	}

	var bg image.Image
	if background != nil {
		bg = imaging.Resize(background, w, h, imaging.Lanczos)
	}

	dc := gg.NewContext(w, h)
	transform := func() {
		dc.Identity()
		dc.Translate(pan.X, pan.Y)
		dc.Scale(zoom, zoom)
	}
	transform()

	for _, c := range cmds {
		switch c.Op {
		case OpClear:
			dc.Identity()
			dc.SetColor(color.Transparent)
			dc.Clear()
			transform()
			if bg != nil {
				dc.DrawImage(bg, 0, 0)
			}
		case OpRect:
			x, y := math.Min(c.From.X, c.To.X), math.Min(c.From.Y, c.To.Y)
			rw, rh := math.Abs(c.To.X-c.From.X), math.Abs(c.To.Y-c.From.Y)
			dc.DrawRectangle(x, y, rw, rh)
			fill := c.Color
			fill.A = uint8(math.Round(c.FillAlpha * 255))
			dc.SetColor(fill)
			dc.FillPreserve()
			dc.SetColor(c.Color)
			dc.SetLineWidth(c.LineWidth)
			dc.Stroke()
		case OpText:
			dc.SetFontFace(r.face(c.FontSize))
			dc.SetColor(c.Color)
			dc.DrawString(c.Text, c.From.X, c.From.Y)
		case OpHandle:
			dc.DrawCircle(c.From.X, c.From.Y, c.Radius)
			dc.SetColor(c.Color)
			dc.Fill()
		case OpLine:
			dc.DrawLine(c.From.X, c.From.Y, c.To.X, c.To.Y)
			dc.SetColor(c.Color)
			dc.SetLineWidth(c.LineWidth)
			dc.Stroke()
		}
	}
	return dc.Image(), nil
}

// DrawSnapshot renders and rasterizes a snapshot in one call.
func (r *Rasterizer) DrawSnapshot(s Snapshot, background image.Image) (image.Image, error) {
	return r.Draw(Render(s), s.Canvas, s.Zoom, s.Pan, background)
}

func (r *Rasterizer) face(size float64) font.Face {
	if size <= 0 {
		size = FontSize
	}
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{Size: size})
	r.faces[size] = f
	return f
}
