// Package audio is the built-in plugin for sounds and music streams.
//
// Sounds and music are not shared: every script object owns its payload. The
// plugin tracks every live payload so music streams can be fed once per frame
// and whatever scripts never released is unloaded at shutdown.
package audio

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/plugin"
)

const Name = "audio"

const (
	ModuleIndex = "@glint/audio"
	ModuleSound = "@glint/audio/Sound"
	ModuleMusic = "@glint/audio/Music"
)

const indexSource = `export { default as Sound } from "@glint/audio/Sound";
export { default as Music } from "@glint/audio/Music";
`

// Plugin owns the audio device and the tracking set of one engine.
type Plugin struct {
	env *plugin.Env
	log *zap.Logger

	device bool
	sounds map[uint32]*soundRef
	music  map[uint32]*musicRef

	soundClass *bridge.Binding[soundRef]
	musicClass *bridge.Binding[musicRef]
}

func Factory() plugin.Factory {
	return func(env *plugin.Env) (*plugin.Descriptor, error) {
		return New(env).Descriptor(), nil
	}
}

func New(env *plugin.Env) *Plugin {
	p := &Plugin{
		env:    env,
		log:    env.Log.Named(Name),
		sounds: make(map[uint32]*soundRef),
		music:  make(map[uint32]*musicRef),
	}
	p.soundClass = p.newSoundClass().Bind(env.Runtime, env.Finalizers, p.log)
	p.musicClass = p.newMusicClass().Bind(env.Runtime, env.Finalizers, p.log)
	return p
}

func (p *Plugin) Descriptor() *plugin.Descriptor {
	export := func(name string, ctor *goja.Object) require.ModuleLoader {
		return func(_ *goja.Runtime, module *goja.Object) {
			bridge.ExportDefault(module, name, ctor)
		}
	}
	return &plugin.Descriptor{
		Name: Name,
		Native: map[string]require.ModuleLoader{
			ModuleSound: export("Sound", p.soundClass.Constructor()),
			ModuleMusic: export("Music", p.musicClass.Constructor()),
		},
		Scripts: map[string]string{ModuleIndex: indexSource},
		Load:    p.ensureDevice,
		Unload:  p.unload,
		Update:  p.update,
	}
}

// Tracked returns the number of live sounds and music streams.
func (p *Plugin) Tracked() (sounds, music int) {
	return len(p.sounds), len(p.music)
}

// ensureDevice opens the audio device once. Constructors call it too, so a
// game may create sounds before the plugin load callback runs.
func (p *Plugin) ensureDevice() error {
	if p.device {
		return nil
	}
	if err := p.env.Backend.InitAudio(); err != nil {
		return fmt.Errorf("init audio device: %w", err)
	}
	p.device = true
	return nil
}

// update feeds every playing music stream, in load order.
func (p *Plugin) update() error {
	for _, id := range slices.Sorted(maps.Keys(p.music)) {
		m := p.music[id].music
		if p.env.Backend.IsMusicPlaying(m) {
			p.env.Backend.UpdateMusic(m)
		}
	}
	return nil
}

func (p *Plugin) unload() error {
	if n := len(p.sounds) + len(p.music); n > 0 {
		p.log.Warn("audio still loaded at shutdown", zap.Int("sounds", len(p.sounds)), zap.Int("music", len(p.music)))
	}
	for _, id := range slices.Sorted(maps.Keys(p.sounds)) {
		p.releaseSound(p.sounds[id])
	}
	for _, id := range slices.Sorted(maps.Keys(p.music)) {
		p.releaseMusic(p.music[id])
	}
	if p.device {
		p.env.Backend.CloseAudio()
		p.device = false
	}
	return nil
}

func (p *Plugin) read(file string) (string, []byte, error) {
	data, err := p.env.Files.ReadBytes(file)
	if err != nil {
		return "", nil, err
	}
	return extOf(file), data, nil
}
