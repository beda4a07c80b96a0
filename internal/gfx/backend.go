package gfx

import "errors"

// ErrUnsupportedFormat is returned by loaders for file types the backend
// cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Backend is everything the engine and its plugins need from the native
// graphics, input and audio library. All methods are called from the frame
// loop goroutine.
type Backend interface {
	Window
	Renderer
	Input
	Assets
	Audio
}

type Window interface {
	OpenWindow(cfg WindowConfig) error
	CloseWindow()
	ShouldClose() bool
	SetWindowTitle(title string)
	SetWindowSize(width, height int)
	SetTargetFPS(fps int)

	FrameTime() float32
	Time() float64
	ScreenWidth() int
	ScreenHeight() int
	FPS() int
}

type Renderer interface {
	BeginDrawing()
	EndDrawing()
	BeginCamera(cam Camera2D)
	EndCamera()

	Clear(c Color)
	DrawRectangle(r Rectangle, c Color)
	DrawRectangleLines(r Rectangle, thick float32, c Color)
	DrawCircle(center Vector2, radius float32, c Color)
	DrawLine(from, to Vector2, thick float32, c Color)
	// DrawText draws with font, or the built-in font when font is nil.
	DrawText(font *Font, text string, pos Vector2, size, spacing float32, c Color)
	DrawTexture(t Texture, src, dst Rectangle, origin Vector2, rotation float32, tint Color)
	DrawTextureNPatch(t Texture, n NPatch, dst Rectangle, origin Vector2, rotation float32, tint Color)
	// BeginTextureMode redirects drawing into rt until EndTextureMode.
	BeginTextureMode(rt RenderTexture)
	EndTextureMode()
	DrawFPS(x, y int)
}

type Input interface {
	IsKeyDown(k Key) bool
	IsKeyPressed(k Key) bool
	IsKeyReleased(k Key) bool
	IsKeyUp(k Key) bool

	MousePosition() Vector2
	IsMouseDown(b MouseButton) bool
	IsMousePressed(b MouseButton) bool
	IsMouseReleased(b MouseButton) bool
	MouseWheel() float32
}

// Assets decodes shared resources. ext is the lower-case file extension with
// its leading dot, e.g. ".png".
type Assets interface {
	LoadTexture(ext string, data []byte) (Texture, error)
	UnloadTexture(t Texture)
	LoadFont(ext string, data []byte, size int32, codepoints []rune) (Font, error)
	UnloadFont(f Font)
	LoadRenderTexture(width, height int32) (RenderTexture, error)
	UnloadRenderTexture(rt RenderTexture)
}

type Audio interface {
	InitAudio() error
	CloseAudio()

	LoadSound(ext string, data []byte) (Sound, error)
	UnloadSound(s Sound)
	PlaySound(s Sound)
	StopSound(s Sound)
	IsSoundPlaying(s Sound) bool
	SetSoundVolume(s Sound, v float32)
	SetSoundPan(s Sound, v float32)
	SetSoundPitch(s Sound, v float32)

	LoadMusic(ext string, data []byte) (Music, error)
	UnloadMusic(m Music)
	PlayMusic(m Music)
	StopMusic(m Music)
	PauseMusic(m Music)
	ResumeMusic(m Music)
	UpdateMusic(m Music)
	IsMusicPlaying(m Music) bool
	SeekMusic(m Music, seconds float32)
	SetMusicVolume(m Music, v float32)
	SetMusicPan(m Music, v float32)
	SetMusicPitch(m Music, v float32)
	SetMusicLooping(m Music, loop bool)
	MusicLooping(m Music) bool
	MusicLength(m Music) float32
	MusicPlayed(m Music) float32
}
