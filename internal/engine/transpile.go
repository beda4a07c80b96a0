package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"
)

// Modules are compiled as one function taking the CommonJS free variables.
// The prefix stays on the first line so script line numbers are unchanged.
const (
	wrapperPrefix = "(function (exports, require, module, __filename, __dirname) {"
	wrapperSuffix = "\n})"
)

// compiler turns module sources into wrapped programs. ES module and
// TypeScript sources are lowered to CommonJS with esbuild first. Programs are
// cached by a hash of name and source, so a hot reload only recompiles the
// files that changed.
type compiler struct {
	transpile bool
	log       *zap.Logger

	programs map[uint64]*goja.Program
	hits     int
	misses   int
}

func newCompiler(transpile bool, log *zap.Logger) *compiler {
	return &compiler{
		transpile: transpile,
		log:       log,
		programs:  make(map[uint64]*goja.Program),
	}
}

func sourceKey(name, src string) uint64 {
	d := xxhash.New()
	d.WriteString(name)
	d.WriteString("\x00")
	d.WriteString(src)
	return d.Sum64()
}

// compile returns the wrapper program for src. force transforms src even
// when file transpiling is off; builtin modules are always ES modules.
func (c *compiler) compile(name, src string, force bool) (*goja.Program, error) {
	key := sourceKey(name, src)
	if p, ok := c.programs[key]; ok {
		c.hits++
		return p, nil
	}
	c.misses++

	code := src
	if force || c.transpile || isTypeScript(name) {
		out, err := transform(name, src)
		if err != nil {
			return nil, err
		}
		code = out
	}
	p, err := goja.Compile(name, wrapperPrefix+code+wrapperSuffix, true)
	if err != nil {
		return nil, &ScriptError{Module: name, Message: err.Error(), Err: err}
	}
	c.programs[key] = p
	c.log.Debug("compiled module", zap.String("module", name), zap.Int("bytes", len(code)))
	return p, nil
}

// stats reports cache hits and misses since creation.
func (c *compiler) stats() (hits, misses int) {
	return c.hits, c.misses
}

func isTypeScript(name string) bool {
	return strings.EqualFold(path.Ext(name), ".ts")
}

func transform(name, src string) (string, error) {
	loader := api.LoaderJS
	if isTypeScript(name) {
		loader = api.LoaderTS
	}
	res := api.Transform(src, api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		Sourcefile: name,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return "", &ScriptError{Module: name, Message: describe(res.Errors)}
	}
	return string(res.Code), nil
}

func describe(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if loc := m.Location; loc != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column+1, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
