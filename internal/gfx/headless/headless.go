// Package headless is a windowless gfx.Backend. It decodes real image, font
// and audio headers so load failures behave like the native backend, and it
// records every draw call for inspection.
package headless

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font/sfnt"
	_ "golang.org/x/image/webp"

	"github.com/glint-engine/glint/internal/gfx"
)

// Call is one recorded backend invocation.
type Call struct {
	Op   string
	Args []any
}

type sound struct {
	playing bool
	volume  float32
	pan     float32
	pitch   float32
}

type music struct {
	sound
	paused  bool
	looping bool
	length  float32
	played  float32
}

// Backend implements gfx.Backend without a window. It is not safe for
// concurrent use.
type Backend struct {
	// MaxFrames makes ShouldClose report true once that many frames have
	// ended. Zero means the window never asks to close.
	MaxFrames int

	cfg     gfx.WindowConfig
	open    bool
	audio   bool
	frames  int
	drawing bool
	camera  bool
	target  uint32

	calls []Call

	nextID   uint32
	textures map[uint32]gfx.Texture
	targets  map[uint32]gfx.RenderTexture
	fonts    map[uint32]gfx.Font
	sounds   map[uint32]*sound
	music    map[uint32]*music

	down     map[gfx.Key]bool
	pressed  map[gfx.Key]bool
	released map[gfx.Key]bool
	mouse    gfx.Vector2
	buttons  map[gfx.MouseButton]bool
	wheel    float32
}

var _ gfx.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		textures: make(map[uint32]gfx.Texture),
		targets:  make(map[uint32]gfx.RenderTexture),
		fonts:    make(map[uint32]gfx.Font),
		sounds:   make(map[uint32]*sound),
		music:    make(map[uint32]*music),
		down:     make(map[gfx.Key]bool),
		pressed:  make(map[gfx.Key]bool),
		released: make(map[gfx.Key]bool),
		buttons:  make(map[gfx.MouseButton]bool),
	}
}

func (b *Backend) record(op string, args ...any) {
	b.calls = append(b.calls, Call{Op: op, Args: args})
}

// Calls returns every recorded call in order.
func (b *Backend) Calls() []Call { return b.calls }

// CallsOf returns the recorded calls with the given op.
func (b *Backend) CallsOf(op string) []Call {
	var out []Call
	for _, c := range b.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) ResetCalls() { b.calls = nil }

// Frames returns how many drawing scopes have ended.
func (b *Backend) Frames() int { return b.frames }

func (b *Backend) Config() gfx.WindowConfig { return b.cfg }

// Live reports the number of native payloads not yet unloaded.
func (b *Backend) Live() (textures, fonts, sounds, musics int) {
	return len(b.textures), len(b.fonts), len(b.sounds), len(b.music)
}

// RenderTargets reports the number of render textures not yet unloaded.
func (b *Backend) RenderTargets() int { return len(b.targets) }

// Press marks k as pressed during the next frame and down until Release.
func (b *Backend) Press(k gfx.Key) {
	b.pressed[k] = true
	b.down[k] = true
}

func (b *Backend) Release(k gfx.Key) {
	delete(b.down, k)
	b.released[k] = true
}

func (b *Backend) MoveMouse(p gfx.Vector2) { b.mouse = p }

func (b *Backend) SetMouseButton(btn gfx.MouseButton, down bool) { b.buttons[btn] = down }

func (b *Backend) ScrollWheel(d float32) { b.wheel = d }

// ── Window ──

func (b *Backend) OpenWindow(cfg gfx.WindowConfig) error {
	if b.open {
		return errors.New("window already open")
	}
	b.cfg = cfg
	b.open = true
	b.record("OpenWindow", cfg)
	return nil
}

func (b *Backend) CloseWindow() {
	b.open = false
	b.record("CloseWindow")
}

func (b *Backend) ShouldClose() bool {
	return !b.open || (b.MaxFrames > 0 && b.frames >= b.MaxFrames)
}

func (b *Backend) SetWindowTitle(title string) { b.cfg.Title = title }

func (b *Backend) SetWindowSize(width, height int) {
	b.cfg.Width, b.cfg.Height = width, height
}

func (b *Backend) SetTargetFPS(fps int) { b.cfg.FPS = fps }

func (b *Backend) FrameTime() float32 {
	if b.cfg.FPS <= 0 {
		return 0
	}
	return 1 / float32(b.cfg.FPS)
}

func (b *Backend) Time() float64     { return float64(b.frames) * float64(b.FrameTime()) }
func (b *Backend) ScreenWidth() int  { return b.cfg.Width }
func (b *Backend) ScreenHeight() int { return b.cfg.Height }
func (b *Backend) FPS() int          { return b.cfg.FPS }

// ── Renderer ──

func (b *Backend) BeginDrawing() {
	if b.drawing {
		panic("headless: BeginDrawing inside an open drawing scope")
	}
	b.drawing = true
	b.record("BeginDrawing")
}

func (b *Backend) EndDrawing() {
	if !b.drawing {
		panic("headless: EndDrawing without BeginDrawing")
	}
	b.drawing = false
	b.frames++
	clear(b.pressed)
	clear(b.released)
	b.wheel = 0
	b.record("EndDrawing")
}

func (b *Backend) BeginCamera(cam gfx.Camera2D) {
	b.camera = true
	b.record("BeginCamera", cam)
}

func (b *Backend) EndCamera() {
	b.camera = false
	b.record("EndCamera")
}

func (b *Backend) BeginTextureMode(rt gfx.RenderTexture) {
	if _, ok := b.targets[rt.ID]; !ok {
		panic(fmt.Sprintf("headless: texture mode on unloaded render texture %d", rt.ID))
	}
	if b.target != 0 {
		panic("headless: BeginTextureMode inside an open texture mode")
	}
	b.target = rt.ID
	b.record("BeginTextureMode", rt.ID)
}

func (b *Backend) EndTextureMode() {
	b.target = 0
	b.record("EndTextureMode")
}

func (b *Backend) Clear(c gfx.Color) { b.record("Clear", c) }

func (b *Backend) DrawRectangle(r gfx.Rectangle, c gfx.Color) {
	b.record("DrawRectangle", r, c)
}

func (b *Backend) DrawRectangleLines(r gfx.Rectangle, thick float32, c gfx.Color) {
	b.record("DrawRectangleLines", r, thick, c)
}

func (b *Backend) DrawCircle(center gfx.Vector2, radius float32, c gfx.Color) {
	b.record("DrawCircle", center, radius, c)
}

func (b *Backend) DrawLine(from, to gfx.Vector2, thick float32, c gfx.Color) {
	b.record("DrawLine", from, to, thick, c)
}

func (b *Backend) DrawText(font *gfx.Font, text string, pos gfx.Vector2, size, spacing float32, c gfx.Color) {
	var id uint32
	if font != nil {
		id = font.ID
	}
	b.record("DrawText", id, text, pos, size, spacing, c)
}

func (b *Backend) DrawTexture(t gfx.Texture, src, dst gfx.Rectangle, origin gfx.Vector2, rotation float32, tint gfx.Color) {
	if _, ok := b.textures[t.ID]; !ok {
		panic(fmt.Sprintf("headless: draw of unloaded texture %d", t.ID))
	}
	b.record("DrawTexture", t.ID, src, dst, origin, rotation, tint)
}

func (b *Backend) DrawTextureNPatch(t gfx.Texture, n gfx.NPatch, dst gfx.Rectangle, origin gfx.Vector2, rotation float32, tint gfx.Color) {
	if _, ok := b.textures[t.ID]; !ok {
		panic(fmt.Sprintf("headless: draw of unloaded texture %d", t.ID))
	}
	b.record("DrawTextureNPatch", t.ID, n, dst, origin, rotation, tint)
}

func (b *Backend) DrawFPS(x, y int) { b.record("DrawFPS", x, y) }

// ── Input ──

func (b *Backend) IsKeyDown(k gfx.Key) bool     { return b.down[k] }
func (b *Backend) IsKeyPressed(k gfx.Key) bool  { return b.pressed[k] }
func (b *Backend) IsKeyReleased(k gfx.Key) bool { return b.released[k] }
func (b *Backend) IsKeyUp(k gfx.Key) bool       { return !b.down[k] }

func (b *Backend) MousePosition() gfx.Vector2               { return b.mouse }
func (b *Backend) IsMouseDown(btn gfx.MouseButton) bool     { return b.buttons[btn] }
func (b *Backend) IsMousePressed(btn gfx.MouseButton) bool  { return b.buttons[btn] }
func (b *Backend) IsMouseReleased(btn gfx.MouseButton) bool { return false }
func (b *Backend) MouseWheel() float32                      { return b.wheel }

// ── Assets ──

func (b *Backend) id() uint32 {
	b.nextID++
	return b.nextID
}

func (b *Backend) LoadTexture(ext string, data []byte) (gfx.Texture, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return gfx.Texture{}, fmt.Errorf("decode %s image: %w", ext, err)
	}
	t := gfx.Texture{ID: b.id(), Width: int32(cfg.Width), Height: int32(cfg.Height)}
	b.textures[t.ID] = t
	b.record("LoadTexture", t.ID, format)
	return t, nil
}

func (b *Backend) UnloadTexture(t gfx.Texture) {
	if _, ok := b.textures[t.ID]; !ok {
		panic(fmt.Sprintf("headless: texture %d unloaded twice", t.ID))
	}
	delete(b.textures, t.ID)
	b.record("UnloadTexture", t.ID)
}

// LoadRenderTexture registers the color buffer as a texture so it can be
// drawn like any other.
func (b *Backend) LoadRenderTexture(width, height int32) (gfx.RenderTexture, error) {
	if width <= 0 || height <= 0 {
		return gfx.RenderTexture{}, fmt.Errorf("render texture %dx%d: size must be positive", width, height)
	}
	rt := gfx.RenderTexture{ID: b.id()}
	rt.Texture = gfx.Texture{ID: b.id(), Width: width, Height: height}
	b.targets[rt.ID] = rt
	b.textures[rt.Texture.ID] = rt.Texture
	b.record("LoadRenderTexture", rt.ID, width, height)
	return rt, nil
}

func (b *Backend) UnloadRenderTexture(rt gfx.RenderTexture) {
	if _, ok := b.targets[rt.ID]; !ok {
		panic(fmt.Sprintf("headless: render texture %d unloaded twice", rt.ID))
	}
	delete(b.targets, rt.ID)
	delete(b.textures, rt.Texture.ID)
	b.record("UnloadRenderTexture", rt.ID)
}

func (b *Backend) LoadFont(ext string, data []byte, size int32, codepoints []rune) (gfx.Font, error) {
	switch ext {
	case ".ttf", ".otf":
	default:
		return gfx.Font{}, fmt.Errorf("font %s: %w", ext, gfx.ErrUnsupportedFormat)
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return gfx.Font{}, fmt.Errorf("parse font: %w", err)
	}
	glyphs := int32(f.NumGlyphs())
	if len(codepoints) > 0 {
		glyphs = int32(len(codepoints))
	}
	font := gfx.Font{ID: b.id(), BaseSize: size, GlyphCount: glyphs}
	b.fonts[font.ID] = font
	b.record("LoadFont", font.ID, size)
	return font, nil
}

func (b *Backend) UnloadFont(f gfx.Font) {
	if _, ok := b.fonts[f.ID]; !ok {
		panic(fmt.Sprintf("headless: font %d unloaded twice", f.ID))
	}
	delete(b.fonts, f.ID)
	b.record("UnloadFont", f.ID)
}

// ── Audio ──

func (b *Backend) InitAudio() error {
	b.audio = true
	b.record("InitAudio")
	return nil
}

func (b *Backend) CloseAudio() {
	b.audio = false
	b.record("CloseAudio")
}

// AudioReady reports whether InitAudio ran without a matching CloseAudio.
func (b *Backend) AudioReady() bool { return b.audio }

func (b *Backend) LoadSound(ext string, data []byte) (gfx.Sound, error) {
	if _, err := audioLength(ext, data); err != nil {
		return gfx.Sound{}, err
	}
	s := gfx.Sound{ID: b.id()}
	b.sounds[s.ID] = &sound{volume: 1, pan: 0.5, pitch: 1}
	b.record("LoadSound", s.ID)
	return s, nil
}

func (b *Backend) UnloadSound(s gfx.Sound) {
	if _, ok := b.sounds[s.ID]; !ok {
		panic(fmt.Sprintf("headless: sound %d unloaded twice", s.ID))
	}
	delete(b.sounds, s.ID)
	b.record("UnloadSound", s.ID)
}

func (b *Backend) PlaySound(s gfx.Sound)                 { b.sounds[s.ID].playing = true }
func (b *Backend) StopSound(s gfx.Sound)                 { b.sounds[s.ID].playing = false }
func (b *Backend) IsSoundPlaying(s gfx.Sound) bool       { return b.sounds[s.ID].playing }
func (b *Backend) SetSoundVolume(s gfx.Sound, v float32) { b.sounds[s.ID].volume = v }
func (b *Backend) SetSoundPan(s gfx.Sound, v float32)    { b.sounds[s.ID].pan = v }
func (b *Backend) SetSoundPitch(s gfx.Sound, v float32)  { b.sounds[s.ID].pitch = v }

func (b *Backend) LoadMusic(ext string, data []byte) (gfx.Music, error) {
	length, err := audioLength(ext, data)
	if err != nil {
		return gfx.Music{}, err
	}
	m := gfx.Music{ID: b.id()}
	b.music[m.ID] = &music{sound: sound{volume: 1, pan: 0.5, pitch: 1}, looping: true, length: length}
	b.record("LoadMusic", m.ID)
	return m, nil
}

func (b *Backend) UnloadMusic(m gfx.Music) {
	if _, ok := b.music[m.ID]; !ok {
		panic(fmt.Sprintf("headless: music %d unloaded twice", m.ID))
	}
	delete(b.music, m.ID)
	b.record("UnloadMusic", m.ID)
}

func (b *Backend) PlayMusic(m gfx.Music) {
	s := b.music[m.ID]
	s.playing, s.paused, s.played = true, false, 0
}

func (b *Backend) StopMusic(m gfx.Music) {
	s := b.music[m.ID]
	s.playing, s.paused, s.played = false, false, 0
}

func (b *Backend) PauseMusic(m gfx.Music) {
	if s := b.music[m.ID]; s.playing {
		s.playing, s.paused = false, true
	}
}

func (b *Backend) ResumeMusic(m gfx.Music) {
	if s := b.music[m.ID]; s.paused {
		s.playing, s.paused = true, false
	}
}

// UpdateMusic advances a playing stream by one frame.
func (b *Backend) UpdateMusic(m gfx.Music) {
	s := b.music[m.ID]
	b.record("UpdateMusic", m.ID)
	if !s.playing {
		return
	}
	s.played += b.FrameTime() * s.pitch
	if s.length > 0 && s.played >= s.length {
		if s.looping {
			s.played -= s.length
		} else {
			s.playing, s.played = false, 0
		}
	}
}

func (b *Backend) IsMusicPlaying(m gfx.Music) bool { return b.music[m.ID].playing }

func (b *Backend) SeekMusic(m gfx.Music, seconds float32) {
	s := b.music[m.ID]
	if seconds < 0 {
		seconds = 0
	}
	if s.length > 0 && seconds > s.length {
		seconds = s.length
	}
	s.played = seconds
}

func (b *Backend) SetMusicVolume(m gfx.Music, v float32)  { b.music[m.ID].volume = v }
func (b *Backend) SetMusicPan(m gfx.Music, v float32)     { b.music[m.ID].pan = v }
func (b *Backend) SetMusicPitch(m gfx.Music, v float32)   { b.music[m.ID].pitch = v }
func (b *Backend) SetMusicLooping(m gfx.Music, loop bool) { b.music[m.ID].looping = loop }
func (b *Backend) MusicLooping(m gfx.Music) bool          { return b.music[m.ID].looping }
func (b *Backend) MusicLength(m gfx.Music) float32        { return b.music[m.ID].length }
func (b *Backend) MusicPlayed(m gfx.Music) float32        { return b.music[m.ID].played }

// audioLength checks the container magic for ext and, for WAV, computes the
// duration from the header. Other formats report zero length.
func audioLength(ext string, data []byte) (float32, error) {
	switch ext {
	case ".wav":
		return wavLength(data)
	case ".ogg":
		if !bytes.HasPrefix(data, []byte("OggS")) {
			return 0, errors.New("ogg: missing OggS header")
		}
	case ".flac":
		if !bytes.HasPrefix(data, []byte("fLaC")) {
			return 0, errors.New("flac: missing fLaC header")
		}
	case ".mp3":
		if !bytes.HasPrefix(data, []byte("ID3")) && (len(data) < 2 || data[0] != 0xFF || data[1]&0xE0 != 0xE0) {
			return 0, errors.New("mp3: missing frame sync")
		}
	default:
		return 0, fmt.Errorf("audio %s: %w", ext, gfx.ErrUnsupportedFormat)
	}
	return 0, nil
}

func wavLength(data []byte) (float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("wav: missing RIFF/WAVE header")
	}
	var byteRate uint32
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, errors.New("wav: truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, errors.New("wav: data chunk before fmt chunk")
			}
			return float32(size) / float32(byteRate), nil
		}
		off = body + int(size) + int(size&1)
	}
	return 0, errors.New("wav: no data chunk")
}
