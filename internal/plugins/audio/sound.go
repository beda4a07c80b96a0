package audio

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dop251/goja"

	"github.com/glint-engine/glint/internal/bridge"
	"github.com/glint-engine/glint/internal/gfx"
)

var errUnloaded = errors.New("audio already unloaded")

func extOf(p string) string {
	return strings.ToLower(path.Ext(p))
}

// params mirrors what was last set on a sound, since the backend only has
// setters.
type params struct {
	volume float32
	pan    float32
	pitch  float32
}

func defaultParams() params {
	return params{volume: 1, pan: 0.5, pitch: 1}
}

type soundRef struct {
	sound gfx.Sound
	path  string
	live  bool
	params
}

func (p *Plugin) loadSound(file string) (*soundRef, error) {
	if err := p.ensureDevice(); err != nil {
		return nil, err
	}
	ext, data, err := p.read(file)
	if err != nil {
		return nil, err
	}
	s, err := p.env.Backend.LoadSound(ext, data)
	if err != nil {
		return nil, fmt.Errorf("load sound %s: %w", file, err)
	}
	ref := &soundRef{sound: s, path: file, live: true, params: defaultParams()}
	p.sounds[s.ID] = ref
	return ref, nil
}

// releaseSound stops and unloads ref and drops it from the tracking set. It
// is a no-op for a ref already released.
func (p *Plugin) releaseSound(ref *soundRef) {
	if !ref.live {
		return
	}
	ref.live = false
	delete(p.sounds, ref.sound.ID)
	if p.env.Backend.IsSoundPlaying(ref.sound) {
		p.env.Backend.StopSound(ref.sound)
	}
	p.env.Backend.UnloadSound(ref.sound)
}

func (p *Plugin) liveSound(ref *soundRef) gfx.Sound {
	if !ref.live {
		bridge.Throw(p.env.Runtime, fmt.Errorf("sound %s: %w", ref.path, errUnloaded))
	}
	return ref.sound
}

// unitProp is a read-write number accessor over a params field, pushed to the
// backend on every write.
func unitProp[T any](name string, field func(*T) *float32, push func(*T, float32)) bridge.Property[T] {
	return bridge.Property[T]{
		Name: name,
		Get: func(vm *goja.Runtime, self *T) goja.Value {
			return vm.ToValue(*field(self))
		},
		Set: func(_ *goja.Runtime, self *T, v goja.Value) error {
			f, err := bridge.ToFloat(v)
			if err != nil {
				return err
			}
			push(self, f)
			*field(self) = f
			return nil
		},
	}
}

func (p *Plugin) newSoundClass() *bridge.Class[soundRef] {
	b := p.env.Backend
	return &bridge.Class[soundRef]{
		Name: "Sound",
		Construct: func(_ *goja.Runtime, args []goja.Value) (bridge.Acquire[soundRef], error) {
			file, err := bridge.ToString(bridge.Arg(args, 0))
			if err != nil {
				return nil, bridge.Nest("path", err)
			}
			return func() (*soundRef, error) { return p.loadSound(file) }, nil
		},
		Finalize: p.releaseSound,
		Properties: []bridge.Property[soundRef]{
			{
				Name: "playing",
				Get: func(vm *goja.Runtime, ref *soundRef) goja.Value {
					return vm.ToValue(ref.live && b.IsSoundPlaying(ref.sound))
				},
			},
			{
				Name: "path",
				Get:  func(vm *goja.Runtime, ref *soundRef) goja.Value { return vm.ToValue(ref.path) },
			},
			unitProp("volume", func(r *soundRef) *float32 { return &r.volume }, func(r *soundRef, v float32) {
				b.SetSoundVolume(p.liveSound(r), v)
			}),
			unitProp("pan", func(r *soundRef) *float32 { return &r.pan }, func(r *soundRef, v float32) {
				b.SetSoundPan(p.liveSound(r), v)
			}),
			unitProp("pitch", func(r *soundRef) *float32 { return &r.pitch }, func(r *soundRef, v float32) {
				b.SetSoundPitch(p.liveSound(r), v)
			}),
		},
		Methods: []bridge.Method[soundRef]{
			{Name: "play", Fn: func(_ *bridge.Binding[soundRef], ref *soundRef, call goja.FunctionCall) goja.Value {
				b.PlaySound(p.liveSound(ref))
				return call.This
			}},
			{Name: "stop", Fn: func(_ *bridge.Binding[soundRef], ref *soundRef, call goja.FunctionCall) goja.Value {
				b.StopSound(p.liveSound(ref))
				return call.This
			}},
			{Name: "unload", Fn: func(bind *bridge.Binding[soundRef], _ *soundRef, call goja.FunctionCall) goja.Value {
				bind.Release(call.This)
				return goja.Undefined()
			}},
			{Name: "toString", Fn: func(bind *bridge.Binding[soundRef], ref *soundRef, _ goja.FunctionCall) goja.Value {
				return bind.Runtime().ToValue(fmt.Sprintf("Sound(%s)", ref.path))
			}},
		},
		Statics: []bridge.Static[soundRef]{
			{Name: "load", Fn: func(bind *bridge.Binding[soundRef], call goja.FunctionCall) goja.Value {
				return bind.Construct(call.Arguments...)
			}},
		},
	}
}
