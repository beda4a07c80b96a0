package core

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/glint-engine/glint/internal/filestore"
	"github.com/glint-engine/glint/internal/resource"
)

// TextureEntry preloads one texture under Name.
type TextureEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// FontEntry preloads one font under Name.
type FontEntry struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	Size       int32  `yaml:"size"`
	Codepoints string `yaml:"codepoints"`
}

// Manifest lists assets loaded before the game starts, so scripts can refer
// to them by name alone.
type Manifest struct {
	Textures []TextureEntry `yaml:"textures"`
	Fonts    []FontEntry    `yaml:"fonts"`
}

// Count returns the total number of entries.
func (m *Manifest) Count() int {
	return len(m.Textures) + len(m.Fonts)
}

// LoadManifest reads and validates the manifest at name. A missing file is an
// empty manifest.
func LoadManifest(files filestore.Store, name string) (*Manifest, error) {
	raw, err := files.ReadBytes(name)
	if errors.Is(err, filestore.ErrNotFound) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse asset manifest %s: %w", name, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("asset manifest %s: %w", name, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool)
	for i := range m.Textures {
		e := &m.Textures[i]
		if e.Path == "" {
			return fmt.Errorf("textures[%d]: missing path", i)
		}
		if e.Name == "" {
			e.Name = e.Path
		}
		if seen["texture:"+e.Name] {
			return fmt.Errorf("textures[%d]: duplicate name %q", i, e.Name)
		}
		seen["texture:"+e.Name] = true
	}
	for i := range m.Fonts {
		e := &m.Fonts[i]
		if e.Path == "" {
			return fmt.Errorf("fonts[%d]: missing path", i)
		}
		if e.Name == "" {
			e.Name = e.Path
		}
		if e.Size == 0 {
			e.Size = defaultFontSize
		}
		if e.Size < 0 {
			return fmt.Errorf("fonts[%d]: size must be positive", i)
		}
		if seen["font:"+e.Name] {
			return fmt.Errorf("fonts[%d]: duplicate name %q", i, e.Name)
		}
		seen["font:"+e.Name] = true
	}
	return nil
}

// preload loads every manifest entry and keeps one handle per entry until
// releasePreloaded.
func (p *Plugin) preload(m *Manifest) error {
	for _, e := range m.Textures {
		h, err := p.textures.Load(e.Name, p.textureLoader(e.Path))
		if err != nil {
			return err
		}
		p.preloaded = append(p.preloaded, preloaded{handle: h, release: p.textures.Release})
	}
	for _, e := range m.Fonts {
		params := fontParams{size: e.Size}
		if e.Codepoints != "" {
			params.codepoints = []rune(e.Codepoints)
		}
		h, err := p.fonts.Load(e.Name, p.fontLoader(e.Path, params))
		if err != nil {
			return err
		}
		p.preloaded = append(p.preloaded, preloaded{handle: h, release: p.fonts.Release})
	}
	if n := m.Count(); n > 0 {
		p.log.Info("assets preloaded", zap.Int("textures", len(m.Textures)), zap.Int("fonts", len(m.Fonts)))
	}
	return nil
}

type preloaded struct {
	handle  resource.Handle
	release func(resource.Handle) error
}

func (p *Plugin) releasePreloaded() {
	for _, e := range p.preloaded {
		if err := e.release(e.handle); err != nil {
			p.log.Warn("release preloaded asset", zap.Stringer("handle", e.handle), zap.Error(err))
		}
	}
	p.preloaded = nil
}
