// Package gfx declares the native value types shared by the script bindings
// and the narrow interface to the graphics, input and audio library.
package gfx

import (
	"fmt"
	"math"
)

type Vector2 struct {
	X, Y float32
}

func (v Vector2) Add(o Vector2) Vector2      { return Vector2{v.X + o.X, v.Y + o.Y} }
func (v Vector2) Sub(o Vector2) Vector2      { return Vector2{v.X - o.X, v.Y - o.Y} }
func (v Vector2) Mul(o Vector2) Vector2      { return Vector2{v.X * o.X, v.Y * o.Y} }
func (v Vector2) Div(o Vector2) Vector2      { return Vector2{v.X / o.X, v.Y / o.Y} }
func (v Vector2) Scale(f float32) Vector2    { return Vector2{v.X * f, v.Y * f} }
func (v Vector2) Negate() Vector2            { return Vector2{-v.X, -v.Y} }
func (v Vector2) LengthSqr() float32         { return v.X*v.X + v.Y*v.Y }
func (v Vector2) Length() float32            { return float32(math.Sqrt(float64(v.LengthSqr()))) }
func (v Vector2) Distance(o Vector2) float32 { return v.Sub(o).Length() }

func (v Vector2) Normalize() Vector2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vector2) Lerp(o Vector2, t float32) Vector2 {
	return Vector2{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// Rotate rotates v by angle radians.
func (v Vector2) Rotate(angle float32) Vector2 {
	s, c := math.Sincos(float64(angle))
	return Vector2{
		X: v.X*float32(c) - v.Y*float32(s),
		Y: v.X*float32(s) + v.Y*float32(c),
	}
}

type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
	Lime  = Color{0, 158, 47, 255}
)

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa"; the leading '#' is optional.
func ParseHex(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	var ch [4]uint8
	ch[3] = 255
	for i := 0; i < len(s)/2; i++ {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		ch[i] = hi<<4 | lo
	}
	return Color{ch[0], ch[1], ch[2], ch[3]}, nil
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

type Rectangle struct {
	X, Y, Width, Height float32
}

func (r Rectangle) Contains(p Vector2) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

func (r Rectangle) Intersects(o Rectangle) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width && r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

type Camera2D struct {
	Offset   Vector2
	Target   Vector2
	Rotation float32
	Zoom     float32
}

// DefaultCamera has no offset, no rotation and a zoom of one.
func DefaultCamera() Camera2D {
	return Camera2D{Zoom: 1}
}

// Texture is a GPU texture owned by the backend.
type Texture struct {
	ID     uint32
	Width  int32
	Height int32
}

func (t Texture) Source() Rectangle {
	return Rectangle{Width: float32(t.Width), Height: float32(t.Height)}
}

// RenderTexture is an offscreen render target. Texture is its color buffer
// and draws like any other texture while the target is loaded.
type RenderTexture struct {
	ID      uint32
	Texture Texture
}

// NPatchLayout selects how an NPatch splits its source.
type NPatchLayout int32

const (
	NinePatch            NPatchLayout = iota // 3x3 tiles
	ThreePatchVertical                       // 1x3 tiles
	ThreePatchHorizontal                     // 3x1 tiles
)

// NPatch describes a stretchable region of a texture: the borders keep their
// size and the middle stretches to fill the destination.
type NPatch struct {
	Source                   Rectangle
	Left, Top, Right, Bottom int32
	Layout                   NPatchLayout
}

// Font is a glyph atlas owned by the backend. ID 0 is the built-in font.
type Font struct {
	ID         uint32
	BaseSize   int32
	GlyphCount int32
}

type Sound struct {
	ID uint32
}

type Music struct {
	ID uint32
}

type MouseButton int32

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

func MouseButtonByName(name string) (MouseButton, bool) {
	switch name {
	case "left":
		return MouseLeft, true
	case "right":
		return MouseRight, true
	case "middle":
		return MouseMiddle, true
	}
	return 0, false
}

type WindowConfig struct {
	Width  int
	Height int
	FPS    int
	Title  string
}
