package audio

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

type musicRef struct {
	music gfx.Music
	path  string
	live  bool
	params
}

func (p *Plugin) loadMusic(file string) (*musicRef, error) {
	if err := p.ensureDevice(); err != nil {
		return nil, err
	}
	ext, data, err := p.read(file)
	if err != nil {
		return nil, err
	}
	m, err := p.env.Backend.LoadMusic(ext, data)
	if err != nil {
		return nil, fmt.Errorf("load music %s: %w", file, err)
	}
	ref := &musicRef{music: m, path: file, live: true, params: defaultParams()}
	p.music[m.ID] = ref
	return ref, nil
}

func (p *Plugin) releaseMusic(ref *musicRef) {
	if !ref.live {
		return
	}
	ref.live = false
	delete(p.music, ref.music.ID)
	p.env.Backend.StopMusic(ref.music)
	p.env.Backend.UnloadMusic(ref.music)
}

func (p *Plugin) liveMusic(ref *musicRef) gfx.Music {
	if !ref.live {
		bridge.Throw(p.env.Runtime, fmt.Errorf("music %s: %w", ref.path, errUnloaded))
	}
	return ref.music
}

func (p *Plugin) newMusicClass() *bridge.Class[musicRef] {
	b := p.env.Backend
	action := func(name string, fn func(gfx.Music)) bridge.Method[musicRef] {
		return bridge.Method[musicRef]{Name: name, Fn: func(_ *bridge.Binding[musicRef], ref *musicRef, call goja.FunctionCall) goja.Value {
			fn(p.liveMusic(ref))
			return call.This
		}}
	}
	seconds := func(name string, get func(gfx.Music) float32) bridge.Property[musicRef] {
		return bridge.Property[musicRef]{Name: name, Get: func(vm *goja.Runtime, ref *musicRef) goja.Value {
			return vm.ToValue(get(p.liveMusic(ref)))
		}}
	}
	return &bridge.Class[musicRef]{
		Name: "Music",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[musicRef], error) {
			file, err := bridge.ToString(bridge.Arg(args, 0))
			if err != nil {
				return nil, bridge.Nest("path", err)
			}
			return func() (*musicRef, error) { return p.loadMusic(file) }, nil
		},
		Finalize: p.releaseMusic,
		Properties: []bridge.Property[musicRef]{
			{
				Name: "playing",
				Get: func(vm *goja.Runtime, ref *musicRef) goja.Value {
					return vm.ToValue(ref.live && b.IsMusicPlaying(ref.music))
				},
			},
			{
				Name: "looping",
				Get: func(vm *goja.Runtime, ref *musicRef) goja.Value {
					return vm.ToValue(b.MusicLooping(p.liveMusic(ref)))
				},
				Set: func(_ *goja.Runtime, ref *musicRef, v goja.Value) error {
					loop, err := bridge.ToBool(v)
					if err != nil {
						return err
					}
					b.SetMusicLooping(p.liveMusic(ref), loop)
					return nil
				},
			},
			{
				Name: "path",
				Get:  func(vm *goja.Runtime, ref *musicRef) goja.Value { return vm.ToValue(ref.path) },
			},
			seconds("length", b.MusicLength),
			seconds("played", b.MusicPlayed),
			unitProp("volume", func(r *musicRef) *float32 { return &r.volume }, func(r *musicRef, v float32) {
				b.SetMusicVolume(p.liveMusic(r), v)
			}),
			unitProp("pan", func(r *musicRef) *float32 { return &r.pan }, func(r *musicRef, v float32) {
				b.SetMusicPan(p.liveMusic(r), v)
			}),
			unitProp("pitch", func(r *musicRef) *float32 { return &r.pitch }, func(r *musicRef, v float32) {
				b.SetMusicPitch(p.liveMusic(r), v)
			}),
		},
		Methods: []bridge.Method[musicRef]{
			action("play", b.PlayMusic),
			action("stop", b.StopMusic),
			action("pause", b.PauseMusic),
			action("resume", b.ResumeMusic),
			{Name: "seek", Fn: func(bind *bridge.Binding[musicRef], ref *musicRef, call goja.FunctionCall) goja.Value {
				pos, err := bridge.ToFloat(call.Argument(0))
				if err != nil {
					bridge.Throw(bind.Runtime(), fmt.Errorf("Music.seek: %w", err))
				}
				b.SeekMusic(p.liveMusic(ref), pos)
				return call.This
			}},
			{Name: "unload", Fn: func(bind *bridge.Binding[musicRef], _ *musicRef, call goja.FunctionCall) goja.Value {
				bind.Release(call.This)
				return goja.Undefined()
			}},
			{Name: "toString", Fn: func(bind *bridge.Binding[musicRef], ref *musicRef, _ goja.FunctionCall) goja.Value {
				return bind.Runtime().ToValue(fmt.Sprintf("Music(%s)", ref.path))
			}},
		},
		Statics: []bridge.Static[musicRef]{
			{Name: "load", Fn: func(bind *bridge.Binding[musicRef], call goja.FunctionCall) goja.Value {
				return bind.Construct(call.Arguments...)
			}},
		},
	}
}
