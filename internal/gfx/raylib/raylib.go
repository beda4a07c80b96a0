// Package raylib implements gfx.Backend over raylib-go.
package raylib

import (
	"errors"
	"fmt"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/gfx"
)

type musicStream struct {
	m rl.Music
	// raylib streams some formats straight from the source buffer, so it
	// must stay reachable until the stream is unloaded.
	data []byte
}

// Backend owns every native payload it hands out, keyed by the IDs carried
// in the gfx value types. All methods must be called from the goroutine that
// opened the window.
type Backend struct {
	log *zap.Logger

	nextID   uint32
	textures map[uint32]rl.Texture2D
	targets  map[uint32]rl.RenderTexture2D
	fonts    map[uint32]rl.Font
	sounds   map[uint32]rl.Sound
	music    map[uint32]*musicStream
}

var _ gfx.Backend = (*Backend)(nil)

func New(log *zap.Logger) *Backend {
	return &Backend{
		log:      log,
		textures: make(map[uint32]rl.Texture2D),
		targets:  make(map[uint32]rl.RenderTexture2D),
		fonts:    make(map[uint32]rl.Font),
		sounds:   make(map[uint32]rl.Sound),
		music:    make(map[uint32]*musicStream),
	}
}

func (b *Backend) id() uint32 {
	b.nextID++
	return b.nextID
}

func rgba(c gfx.Color) color.RGBA  { return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A} }
func vec(v gfx.Vector2) rl.Vector2 { return rl.Vector2{X: v.X, Y: v.Y} }
func rect(r gfx.Rectangle) rl.Rectangle {
	return rl.Rectangle{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
func fromVec(v rl.Vector2) gfx.Vector2 { return gfx.Vector2{X: v.X, Y: v.Y} }

// ── Window ──

func (b *Backend) OpenWindow(cfg gfx.WindowConfig) error {
	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), cfg.Title)
	if !rl.IsWindowReady() {
		return errors.New("raylib: window could not be created")
	}
	rl.SetExitKey(0)
	rl.SetTargetFPS(int32(cfg.FPS))
	return nil
}

func (b *Backend) CloseWindow()                { rl.CloseWindow() }
func (b *Backend) ShouldClose() bool           { return rl.WindowShouldClose() }
func (b *Backend) SetWindowTitle(title string) { rl.SetWindowTitle(title) }
func (b *Backend) SetWindowSize(w, h int)      { rl.SetWindowSize(w, h) }
func (b *Backend) SetTargetFPS(fps int)        { rl.SetTargetFPS(int32(fps)) }
func (b *Backend) FrameTime() float32          { return rl.GetFrameTime() }
func (b *Backend) Time() float64               { return rl.GetTime() }
func (b *Backend) ScreenWidth() int            { return rl.GetScreenWidth() }
func (b *Backend) ScreenHeight() int           { return rl.GetScreenHeight() }
func (b *Backend) FPS() int                    { return int(rl.GetFPS()) }

// ── Renderer ──

func (b *Backend) BeginDrawing() { rl.BeginDrawing() }
func (b *Backend) EndDrawing()   { rl.EndDrawing() }

func (b *Backend) BeginCamera(cam gfx.Camera2D) {
	rl.BeginMode2D(rl.Camera2D{
		Offset:   vec(cam.Offset),
		Target:   vec(cam.Target),
		Rotation: cam.Rotation,
		Zoom:     cam.Zoom,
	})
}

func (b *Backend) EndCamera() { rl.EndMode2D() }

func (b *Backend) Clear(c gfx.Color) { rl.ClearBackground(rgba(c)) }

func (b *Backend) DrawRectangle(r gfx.Rectangle, c gfx.Color) {
	rl.DrawRectangleRec(rect(r), rgba(c))
}

func (b *Backend) DrawRectangleLines(r gfx.Rectangle, thick float32, c gfx.Color) {
	rl.DrawRectangleLinesEx(rect(r), thick, rgba(c))
}

func (b *Backend) DrawCircle(center gfx.Vector2, radius float32, c gfx.Color) {
	rl.DrawCircleV(vec(center), radius, rgba(c))
}

func (b *Backend) DrawLine(from, to gfx.Vector2, thick float32, c gfx.Color) {
	rl.DrawLineEx(vec(from), vec(to), thick, rgba(c))
}

func (b *Backend) DrawText(font *gfx.Font, text string, pos gfx.Vector2, size, spacing float32, c gfx.Color) {
	f := rl.GetFontDefault()
	if font != nil && font.ID != 0 {
		if loaded, ok := b.fonts[font.ID]; ok {
			f = loaded
		}
	}
	rl.DrawTextEx(f, text, vec(pos), size, spacing, rgba(c))
}

func (b *Backend) DrawTexture(t gfx.Texture, src, dst gfx.Rectangle, origin gfx.Vector2, rotation float32, tint gfx.Color) {
	tex, ok := b.textures[t.ID]
	if !ok {
		b.log.Warn("draw of unknown texture", zap.Uint32("id", t.ID))
		return
	}
	rl.DrawTexturePro(tex, rect(src), rect(dst), vec(origin), rotation, rgba(tint))
}

func (b *Backend) DrawTextureNPatch(t gfx.Texture, n gfx.NPatch, dst gfx.Rectangle, origin gfx.Vector2, rotation float32, tint gfx.Color) {
	tex, ok := b.textures[t.ID]
	if !ok {
		return
	}
	info := rl.NPatchInfo{
		Source: rect(n.Source),
		Left:   n.Left,
		Top:    n.Top,
		Right:  n.Right,
		Bottom: n.Bottom,
		Layout: rl.NPatchLayout(n.Layout),
	}
	rl.DrawTextureNPatch(tex, info, rect(dst), vec(origin), rotation, rgba(tint))
}

func (b *Backend) BeginTextureMode(rt gfx.RenderTexture) {
	target, ok := b.targets[rt.ID]
	if !ok {
		b.log.Warn("texture mode on unknown render texture", zap.Uint32("id", rt.ID))
		return
	}
	rl.BeginTextureMode(target)
}

func (b *Backend) EndTextureMode() { rl.EndTextureMode() }

func (b *Backend) DrawFPS(x, y int) { rl.DrawFPS(int32(x), int32(y)) }

// ── Input ──

func (b *Backend) IsKeyDown(k gfx.Key) bool     { return rl.IsKeyDown(int32(k)) }
func (b *Backend) IsKeyPressed(k gfx.Key) bool  { return rl.IsKeyPressed(int32(k)) }
func (b *Backend) IsKeyReleased(k gfx.Key) bool { return rl.IsKeyReleased(int32(k)) }
func (b *Backend) IsKeyUp(k gfx.Key) bool       { return rl.IsKeyUp(int32(k)) }

func (b *Backend) MousePosition() gfx.Vector2 { return fromVec(rl.GetMousePosition()) }

func (b *Backend) IsMouseDown(btn gfx.MouseButton) bool {
	return rl.IsMouseButtonDown(rl.MouseButton(btn))
}

func (b *Backend) IsMousePressed(btn gfx.MouseButton) bool {
	return rl.IsMouseButtonPressed(rl.MouseButton(btn))
}

func (b *Backend) IsMouseReleased(btn gfx.MouseButton) bool {
	return rl.IsMouseButtonReleased(rl.MouseButton(btn))
}

func (b *Backend) MouseWheel() float32 { return rl.GetMouseWheelMove() }

// ── Assets ──

func (b *Backend) LoadTexture(ext string, data []byte) (gfx.Texture, error) {
	img := rl.LoadImageFromMemory(ext, data, int32(len(data)))
	if img == nil || img.Width == 0 || img.Height == 0 {
		return gfx.Texture{}, fmt.Errorf("raylib: could not decode %s image", ext)
	}
	defer rl.UnloadImage(img)

	tex := rl.LoadTextureFromImage(img)
	if !rl.IsTextureValid(tex) {
		return gfx.Texture{}, errors.New("raylib: could not upload texture")
	}
	t := gfx.Texture{ID: b.id(), Width: tex.Width, Height: tex.Height}
	b.textures[t.ID] = tex
	return t, nil
}

func (b *Backend) UnloadTexture(t gfx.Texture) {
	tex, ok := b.textures[t.ID]
	if !ok {
		b.log.Warn("unload of unknown texture", zap.Uint32("id", t.ID))
		return
	}
	delete(b.textures, t.ID)
	rl.UnloadTexture(tex)
}

func (b *Backend) LoadRenderTexture(width, height int32) (gfx.RenderTexture, error) {
	target := rl.LoadRenderTexture(width, height)
	if !rl.IsRenderTextureValid(target) {
		return gfx.RenderTexture{}, fmt.Errorf("raylib: could not create %dx%d render texture", width, height)
	}
	rt := gfx.RenderTexture{ID: b.id()}
	rt.Texture = gfx.Texture{ID: b.id(), Width: target.Texture.Width, Height: target.Texture.Height}
	b.targets[rt.ID] = target
	b.textures[rt.Texture.ID] = target.Texture
	return rt, nil
}

func (b *Backend) UnloadRenderTexture(rt gfx.RenderTexture) {
	target, ok := b.targets[rt.ID]
	if !ok {
		b.log.Warn("unload of unknown render texture", zap.Uint32("id", rt.ID))
		return
	}
	delete(b.targets, rt.ID)
	delete(b.textures, rt.Texture.ID)
	rl.UnloadRenderTexture(target)
}

func (b *Backend) LoadFont(ext string, data []byte, size int32, codepoints []rune) (gfx.Font, error) {
	f := rl.LoadFontFromMemory(ext, data, size, codepoints)
	if !rl.IsFontValid(f) {
		return gfx.Font{}, fmt.Errorf("raylib: could not load %s font", ext)
	}
	font := gfx.Font{ID: b.id(), BaseSize: f.BaseSize, GlyphCount: f.CharsCount}
	b.fonts[font.ID] = f
	return font, nil
}

func (b *Backend) UnloadFont(f gfx.Font) {
	font, ok := b.fonts[f.ID]
	if !ok {
		b.log.Warn("unload of unknown font", zap.Uint32("id", f.ID))
		return
	}
	delete(b.fonts, f.ID)
	rl.UnloadFont(font)
}

// ── Audio ──

func (b *Backend) InitAudio() error {
	rl.InitAudioDevice()
	if !rl.IsAudioDeviceReady() {
		return errors.New("raylib: audio device could not be initialized")
	}
	return nil
}

func (b *Backend) CloseAudio() { rl.CloseAudioDevice() }

func (b *Backend) LoadSound(ext string, data []byte) (gfx.Sound, error) {
	wave := rl.LoadWaveFromMemory(ext, data, int32(len(data)))
	if !rl.IsWaveValid(wave) {
		return gfx.Sound{}, fmt.Errorf("raylib: could not decode %s audio", ext)
	}
	defer rl.UnloadWave(wave)

	snd := rl.LoadSoundFromWave(wave)
	s := gfx.Sound{ID: b.id()}
	b.sounds[s.ID] = snd
	return s, nil
}

func (b *Backend) UnloadSound(s gfx.Sound) {
	snd, ok := b.sounds[s.ID]
	if !ok {
		b.log.Warn("unload of unknown sound", zap.Uint32("id", s.ID))
		return
	}
	delete(b.sounds, s.ID)
	rl.UnloadSound(snd)
}

func (b *Backend) PlaySound(s gfx.Sound)                 { rl.PlaySound(b.sounds[s.ID]) }
func (b *Backend) StopSound(s gfx.Sound)                 { rl.StopSound(b.sounds[s.ID]) }
func (b *Backend) IsSoundPlaying(s gfx.Sound) bool       { return rl.IsSoundPlaying(b.sounds[s.ID]) }
func (b *Backend) SetSoundVolume(s gfx.Sound, v float32) { rl.SetSoundVolume(b.sounds[s.ID], v) }
func (b *Backend) SetSoundPan(s gfx.Sound, v float32)    { rl.SetSoundPan(b.sounds[s.ID], v) }
func (b *Backend) SetSoundPitch(s gfx.Sound, v float32)  { rl.SetSoundPitch(b.sounds[s.ID], v) }

func (b *Backend) LoadMusic(ext string, data []byte) (gfx.Music, error) {
	m := rl.LoadMusicStreamFromMemory(ext, data, int32(len(data)))
	if !rl.IsMusicValid(m) {
		return gfx.Music{}, fmt.Errorf("raylib: could not open %s music stream", ext)
	}
	music := gfx.Music{ID: b.id()}
	b.music[music.ID] = &musicStream{m: m, data: data}
	return music, nil
}

func (b *Backend) UnloadMusic(m gfx.Music) {
	s, ok := b.music[m.ID]
	if !ok {
		b.log.Warn("unload of unknown music", zap.Uint32("id", m.ID))
		return
	}
	delete(b.music, m.ID)
	rl.UnloadMusicStream(s.m)
}

func (b *Backend) stream(m gfx.Music) rl.Music { return b.music[m.ID].m }

func (b *Backend) PlayMusic(m gfx.Music)                  { rl.PlayMusicStream(b.stream(m)) }
func (b *Backend) StopMusic(m gfx.Music)                  { rl.StopMusicStream(b.stream(m)) }
func (b *Backend) PauseMusic(m gfx.Music)                 { rl.PauseMusicStream(b.stream(m)) }
func (b *Backend) ResumeMusic(m gfx.Music)                { rl.ResumeMusicStream(b.stream(m)) }
func (b *Backend) UpdateMusic(m gfx.Music)                { rl.UpdateMusicStream(b.stream(m)) }
func (b *Backend) IsMusicPlaying(m gfx.Music) bool        { return rl.IsMusicStreamPlaying(b.stream(m)) }
func (b *Backend) SeekMusic(m gfx.Music, seconds float32) { rl.SeekMusicStream(b.stream(m), seconds) }
func (b *Backend) SetMusicVolume(m gfx.Music, v float32)  { rl.SetMusicVolume(b.stream(m), v) }
func (b *Backend) SetMusicPan(m gfx.Music, v float32)     { rl.SetMusicPan(b.stream(m), v) }
func (b *Backend) SetMusicPitch(m gfx.Music, v float32)   { rl.SetMusicPitch(b.stream(m), v) }
func (b *Backend) SetMusicLooping(m gfx.Music, loop bool) { b.music[m.ID].m.Looping = loop }
func (b *Backend) MusicLooping(m gfx.Music) bool          { return b.stream(m).Looping }
func (b *Backend) MusicLength(m gfx.Music) float32        { return rl.GetMusicTimeLength(b.stream(m)) }
func (b *Backend) MusicPlayed(m gfx.Music) float32        { return rl.GetMusicTimePlayed(b.stream(m)) }
