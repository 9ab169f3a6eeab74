/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/vector"
)

const (
	DefaultCanvasWidth  = 800
	DefaultCanvasHeight = 480
	DefaultBrushSize    = 6

	// points per half circle of a round line cap
	capSegments = 12

	dataURLPrefix = "data:image/png;base64,"
)

// Background is the colour Clear paints the whole buffer with.
var Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Point is a position in display (CSS pixel) coordinates.
type Point struct {
	X, Y float64
}

type Brush struct {
	Color color.RGBA
	Size  float64
}

func DefaultBrush() Brush {
	return Brush{Color: color.RGBA{A: 0xff}, Size: DefaultBrushSize}
}

// ParseColor accepts #rgb and #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Canvas buffers pointer strokes into a raster image. The buffer is the
// display size multiplied by the device pixel ratio, fixed at creation.
type Canvas struct {
	width  int
	height int
	ratio  float64

	buf   *image.RGBA
	z     *vector.Rasterizer
	mode  DrawMode
	brush Brush

	stroking   bool
	last       Point
	hasContent bool
}

// NewCanvas sizes the buffer to width x height display pixels at the given
// pixel ratio. Non-positive arguments fall back to the defaults.
func NewCanvas(width, height int, ratio float64) *Canvas {
	if width <= 0 {
		width = DefaultCanvasWidth
	}
	if height <= 0 {
		height = DefaultCanvasHeight
	}
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}

	w := int(math.Round(float64(width) * ratio))
	h := int(math.Round(float64(height) * ratio))

	c := &Canvas{
		width:  width,
		height: height,
		ratio:  ratio,
		buf:    image.NewRGBA(image.Rect(0, 0, w, h)),
		z:      vector.NewRasterizer(w, h),
		brush:  DefaultBrush(),
	}
	c.Clear()

	return c
}

// DisplaySize is the canvas size in display pixels.
func (c *Canvas) DisplaySize() (int, int) {
	return c.width, c.height
}

// Bounds is the raster buffer's bounds in device pixels.
func (c *Canvas) Bounds() image.Rectangle {
	return c.buf.Bounds()
}

func (c *Canvas) Ratio() float64 {
	return c.ratio
}

func (c *Canvas) Mode() DrawMode {
	return c.mode
}

func (c *Canvas) SetMode(m DrawMode) {
	c.mode = m
}

// ToggleEraser flips between ink and erase and returns the new mode.
func (c *Canvas) ToggleEraser() DrawMode {
	if c.mode == DrawInk {
		c.mode = DrawErase
	} else {
		c.mode = DrawInk
	}
	return c.mode
}

func (c *Canvas) Brush() Brush {
	return c.brush
}

func (c *Canvas) SetBrush(b Brush) {
	if b.Size <= 0 {
		b.Size = DefaultBrushSize
	}
	c.brush = b
}

func (c *Canvas) HasContent() bool {
	return c.hasContent
}

func (c *Canvas) Stroking() bool {
	return c.stroking
}

// PointerDown starts a stroke. Nothing is painted until the pointer moves.
func (c *Canvas) PointerDown(p Point) {
	c.stroking = true
	c.hasContent = true
	c.last = p
}

// PointerMove paints a segment from the last position to p.
func (c *Canvas) PointerMove(p Point) {
	if !c.stroking {
		return
	}
	c.segment(c.last, p)
	c.last = p
}

// PointerUp ends the stroke without drawing.
func (c *Canvas) PointerUp() {
	c.stroking = false
}

// PointerLeave behaves like PointerUp.
func (c *Canvas) PointerLeave() {
	c.stroking = false
}

// Clear paints the whole buffer with Background and forgets any content.
func (c *Canvas) Clear() {
	draw.Draw(c.buf, c.buf.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	c.stroking = false
	c.hasContent = false
}

// Snapshot returns a copy of the raster buffer.
func (c *Canvas) Snapshot() *image.RGBA {
	out := image.NewRGBA(c.buf.Bounds())
	copy(out.Pix, c.buf.Pix)
	return out
}

// Export encodes the buffer as a PNG data URL.
func (c *Canvas) Export() (string, error) {
	var b bytes.Buffer
	if err := png.Encode(&b, c.buf); err != nil {
		return "", fmt.Errorf("encode drawing: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(b.Bytes()), nil
}

// DecodeDataURL reverses Export.
func DecodeDataURL(s string) (image.Image, error) {
	raw, err := DataURLBytes(s)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(raw))
}

// DataURLBytes returns the encoded PNG carried by a drawing data URL.
func DataURLBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, fmt.Errorf("not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(s, dataURLPrefix))
}

func (c *Canvas) segment(from, to Point) {
	a := Point{from.X * c.ratio, from.Y * c.ratio}
	b := Point{to.X * c.ratio, to.Y * c.ratio}
	r := math.Max(c.brush.Size*c.ratio/2, 0.5)

	rect := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-r)),
		int(math.Floor(math.Min(a.Y, b.Y)-r)),
		int(math.Ceil(math.Max(a.X, b.X)+r))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+r))+1,
	).Intersect(c.buf.Bounds())
	if rect.Empty() {
		return
	}

	off := Point{float64(rect.Min.X), float64(rect.Min.Y)}
	c.z.Reset(rect.Dx(), rect.Dy())
	capsule(c.z, Point{a.X - off.X, a.Y - off.Y}, Point{b.X - off.X, b.Y - off.Y}, r)

	mask := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	c.z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	switch c.mode {
	case DrawInk:
		draw.DrawMask(c.buf, rect, image.NewUniform(c.brush.Color), image.Point{}, mask, image.Point{}, draw.Over)
	case DrawErase:
		// destination-out: keep (1 - coverage) of what is already there
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				m := uint32(mask.AlphaAt(x-rect.Min.X, y-rect.Min.Y).A)
				if m == 0 {
					continue
				}
				i := c.buf.PixOffset(x, y)
				for k := 0; k < 4; k++ {
					c.buf.Pix[i+k] = uint8(uint32(c.buf.Pix[i+k]) * (255 - m) / 255)
				}
			}
		}
	}
}

// capsule traces a line from a to b with round caps of radius r.
func capsule(z *vector.Rasterizer, a, b Point, r float64) {
	theta := math.Atan2(b.Y-a.Y, b.X-a.X)
	first := true

	arc := func(center Point, start float64) {
		for i := 0; i <= capSegments; i++ {
			t := start + math.Pi*float64(i)/capSegments
			x := float32(center.X + r*math.Cos(t))
			y := float32(center.Y + r*math.Sin(t))
			if first {
				z.MoveTo(x, y)
				first = false
				continue
			}
			z.LineTo(x, y)
		}
	}

	arc(a, theta+math.Pi/2)
	arc(b, theta-math.Pi/2)
	z.ClosePath()
}
