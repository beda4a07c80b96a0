package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/gfx"
	"github.com/glint-engine/glint/internal/gfx/headless"
	"github.com/glint-engine/glint/internal/plugin"
)

type fixture struct {
	vm      *goja.Runtime
	backend *headless.Backend
	plugin  *Plugin
	desc    *plugin.Descriptor
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beep.wav"), headless.WAV(0.1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.wav"), headless.WAV(0.25), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("RIFF...."), 0o644))

	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{vm: goja.New(), backend: headless.New(), logs: logs}
	require.NoError(t, f.backend.OpenWindow(gfx.WindowConfig{Width: 1, Height: 1, FPS: 10}))
	env := &plugin.Env{
		Runtime:    f.vm,
		Files:      filestore.NewDirStore(dir),
		Backend:    f.backend,
		Finalizers: bridge.NewFinalizers(),
		Log:        zap.New(core),
	}
	f.plugin = New(env)
	f.desc = f.plugin.Descriptor()
	for name, global := range map[string]string{ModuleSound: "Sound", ModuleMusic: "Music"} {
		module := f.vm.NewObject()
		module.Set("exports", f.vm.NewObject())
		f.desc.Native[name](f.vm, module)
		require.NoError(t, f.vm.Set(global, module.Get("exports")))
	}
	return f
}

func (f *fixture) run(t *testing.T, src string) goja.Value {
	t.Helper()
	v, err := f.vm.RunString(src)
	require.NoError(t, err)
	return v
}

func TestDescriptorShape(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Name, f.desc.Name)
	assert.Contains(t, f.desc.Native, ModuleSound)
	assert.Contains(t, f.desc.Native, ModuleMusic)
	assert.Contains(t, f.desc.Scripts[ModuleIndex], `from "@glint/audio/Music"`)
	assert.NotNil(t, f.desc.Update)
	assert.Nil(t, f.desc.Draw)
}

func TestDeviceOpensOnce(t *testing.T) {
	f := newFixture(t)
	f.run(t, `new Sound("beep.wav")`)
	require.NoError(t, f.desc.Load())
	assert.Len(t, f.backend.CallsOf("InitAudio"), 1)
	assert.True(t, f.backend.AudioReady())
}

func TestSoundTracking(t *testing.T) {
	f := newFixture(t)
	f.run(t, `
		var a = new Sound("beep.wav");
		var b = Sound.load("beep.wav");
	`)
	sounds, _ := f.plugin.Tracked()
	assert.Equal(t, 2, sounds)

	f.run(t, `a.unload()`)
	sounds, _ = f.plugin.Tracked()
	assert.Equal(t, 1, sounds)
	_, _, live, _ := f.backend.Live()
	assert.Equal(t, 1, live)
}

func TestSoundPlaybackAndParams(t *testing.T) {
	f := newFixture(t)
	v := f.run(t, `
		var s = new Sound("beep.wav");
		var before = [s.volume, s.pan, s.pitch];
		s.volume = 0.25;
		s.pitch = 2;
		s.play();
		[before, s.playing, s.volume, s.pitch, String(s)];
	`)
	got := v.Export().([]any)
	assert.Equal(t, []any{int64(1), 0.5, int64(1)}, got[0])
	assert.Equal(t, true, got[1])
	assert.InDelta(t, 0.25, got[2], 1e-6)
	assert.InDelta(t, 2.0, got[3], 1e-6)
	assert.Equal(t, "Sound(beep.wav)", got[4])

	assert.Equal(t, false, f.run(t, `s.stop().playing`).Export())
}

func TestSoundArgumentErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.vm.RunString(`new Sound()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")

	_, err = f.vm.RunString(`new Sound("missing.wav")`)
	require.Error(t, err)

	_, err = f.vm.RunString(`new Sound("broken.wav")`)
	require.Error(t, err)

	sounds, _ := f.plugin.Tracked()
	assert.Zero(t, sounds)
	assert.Empty(t, f.backend.CallsOf("LoadSound"))
}

func TestUnloadedSoundThrows(t *testing.T) {
	f := newFixture(t)
	f.run(t, `var s = new Sound("beep.wav")`)
	require.NoError(t, f.desc.Unload())

	assert.Equal(t, false, f.run(t, `s.playing`).Export())
	_, err := f.vm.RunString(`s.play()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already unloaded")
}

func TestFinalizeReleasesOnce(t *testing.T) {
	f := newFixture(t)
	obj := f.run(t, `new Sound("beep.wav")`)

	f.plugin.soundClass.Finalize(obj)
	f.plugin.soundClass.Finalize(obj)
	assert.Len(t, f.backend.CallsOf("UnloadSound"), 1)

	sounds, _ := f.plugin.Tracked()
	assert.Zero(t, sounds)
	require.NoError(t, f.desc.Unload())
	assert.Len(t, f.backend.CallsOf("UnloadSound"), 1)
}

func TestUpdateFeedsPlayingMusic(t *testing.T) {
	f := newFixture(t)
	f.run(t, `
		var playing = new Music("theme.wav");
		var idle = Music.load("theme.wav");
		playing.play();
	`)
	for range 2 {
		require.NoError(t, f.desc.Update())
	}
	assert.Len(t, f.backend.CallsOf("UpdateMusic"), 2)
	assert.InDelta(t, 0.2, f.run(t, `playing.played`).ToFloat(), 1e-3)
	assert.Equal(t, false, f.run(t, `idle.playing`).Export())
}

func TestMusicControls(t *testing.T) {
	f := newFixture(t)
	v := f.run(t, `
		var m = new Music("theme.wav");
		var loop = m.looping;
		m.looping = false;
		m.play().seek(0.1).pause();
		var paused = m.playing;
		m.resume();
		[loop, m.looping, paused, m.playing, m.played, m.length, String(m)];
	`)
	got := v.Export().([]any)
	assert.Equal(t, true, got[0])
	assert.Equal(t, false, got[1])
	assert.Equal(t, false, got[2])
	assert.Equal(t, true, got[3])
	assert.InDelta(t, 0.1, got[4], 1e-3)
	assert.InDelta(t, 0.25, got[5], 1e-3)
	assert.Equal(t, "Music(theme.wav)", got[6])

	_, err := f.vm.RunString(`m.seek("later")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Music.seek")
}

func TestUnloadReleasesLeaksAndClosesDevice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.desc.Load())
	f.run(t, `
		new Sound("beep.wav");
		new Music("theme.wav").play();
	`)
	require.NoError(t, f.desc.Unload())

	sounds, music := f.plugin.Tracked()
	assert.Zero(t, sounds)
	assert.Zero(t, music)
	_, _, liveSounds, liveMusic := f.backend.Live()
	assert.Zero(t, liveSounds)
	assert.Zero(t, liveMusic)
	assert.False(t, f.backend.AudioReady())

	warn := f.logs.FilterMessage("audio still loaded at shutdown").All()
	require.Len(t, warn, 1)
	assert.Equal(t, int64(1), warn[0].ContextMap()["sounds"])
	assert.Equal(t, int64(1), warn[0].ContextMap()["music"])
}
