// Package report renders cross-validation results for humans: a PNG with
// the CPU output, the device output and their difference side by side, and
// localized one-line summaries.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	shadercompat "github.com/gogpu/shadercompat"
)

// Layout of the triptych.
const (
	// PanelSize is the edge of the square each output is scaled into.
	PanelSize = 256

	margin    = 8
	labelSize = 14
	labelBand = 22
)

var (
	background = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	labelColor = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	badColor   = color.RGBA{R: 255, G: 48, B: 48, A: 255}
	markColor  = color.RGBA{R: 255, G: 200, B: 0, A: 255}
)

var (
	faceOnce sync.Once
	faceErr  error
	labelTTF *opentype.Font
)

func labelFont() (*opentype.Font, error) {
	faceOnce.Do(func() {
		labelTTF, faceErr = opentype.Parse(goregular.TTF)
	})
	return labelTTF, faceErr
}

// Triptych renders the CPU output, the device output and the per-pixel
// difference of res next to each other. Outputs are mapped to gray over
// their common value range; the difference panel shows |device-cpu| in gray
// and pixels the tolerance rejects in red. The first mismatch is marked
// with a crosshair on every panel.
func Triptych(res shadercompat.Result) (*image.RGBA, error) {
	if res.Width <= 0 || res.Height <= 0 {
		return nil, fmt.Errorf("report: empty result %dx%d", res.Width, res.Height)
	}
	n := res.Width * res.Height
	if len(res.CPU) != n || len(res.Device) != n {
		return nil, fmt.Errorf("report: outputs hold %d and %d values, want %d", len(res.CPU), len(res.Device), n)
	}

	lo, hi := valueRange(res.CPU, res.Device)
	panels := []struct {
		label string
		img   *image.RGBA
	}{
		{"CPU", grayImage(res.CPU, res.Width, res.Height, lo, hi)},
		{"Device", grayImage(res.Device, res.Width, res.Height, lo, hi)},
		{"Difference", diffImage(res)},
	}

	pw, ph := panelExtent(res.Width, res.Height)
	out := image.NewRGBA(image.Rect(0, 0, margin+len(panels)*(pw+margin), labelBand+ph+margin))
	draw.Draw(out, out.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	f, err := labelFont()
	if err != nil {
		return nil, fmt.Errorf("report: parse label font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: labelSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("report: label face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	for i, p := range panels {
		x0 := margin + i*(pw+margin)
		dst := image.Rect(x0, labelBand, x0+pw, labelBand+ph)
		var scaler xdraw.Interpolator = xdraw.NearestNeighbor
		if pw < res.Width {
			scaler = xdraw.CatmullRom
		}
		scaler.Scale(out, dst, p.img, p.img.Bounds(), xdraw.Src, nil)

		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(labelColor),
			Face: face,
			Dot:  fixed.P(x0, labelBand-6),
		}
		d.DrawString(p.label)

		if m := res.Mismatch; m != nil {
			cx := x0 + m.X*pw/res.Width
			cy := labelBand + m.Y*ph/res.Height
			crosshair(out, dst, cx, cy)
		}
	}
	return out, nil
}

// WritePNG renders the triptych of res into the file at path.
func WritePNG(path string, res shadercompat.Result) error {
	img, err := Triptych(res)
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	return f.Close()
}

// panelExtent fits a width x height image into PanelSize, keeping the
// aspect ratio.
func panelExtent(width, height int) (int, int) {
	if width >= height {
		return PanelSize, max(1, height*PanelSize/width)
	}
	return max(1, width*PanelSize/height), PanelSize
}

// valueRange returns the finite minimum and maximum over all values.
func valueRange(outputs ...[]float32) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, out := range outputs {
		for _, v := range out {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				continue
			}
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

func grayImage(values []float32, width, height int, lo, hi float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scale := float32(0)
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for i, v := range values {
		g := uint8(0)
		if !math.IsNaN(float64(v)) {
			g = uint8(min(max((v-lo)*scale, 0), 255))
		}
		img.SetRGBA(i%width, i/width, color.RGBA{R: g, G: g, B: g, A: 255})
	}
	return img
}

func diffImage(res shadercompat.Result) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	tol := res.Verification.Tolerance
	maxErr := res.Verification.MaxAbsErr
	for i := range res.CPU {
		a, b := res.Device[i], res.CPU[i]
		c := color.RGBA{A: 255}
		switch {
		case !tol.Accepts(a, b):
			c = badColor
		case maxErr > 0:
			g := uint8(255 * math.Abs(float64(a)-float64(b)) / maxErr)
			c = color.RGBA{R: g, G: g, B: g, A: 255}
		}
		img.SetRGBA(i%res.Width, i/res.Width, c)
	}
	return img
}

func crosshair(img *image.RGBA, clip image.Rectangle, cx, cy int) {
	const arm = 6
	for d := -arm; d <= arm; d++ {
		for _, p := range []image.Point{{X: cx + d, Y: cy}, {X: cx, Y: cy + d}} {
			if p.In(clip) {
				img.SetRGBA(p.X, p.Y, markColor)
			}
		}
	}
}
