package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glint-engine/glint/internal/config"
)

func writeGame(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.js"), []byte(src), 0o644))
	return dir
}

func TestHeadlessRun(t *testing.T) {
	dir := writeGame(t, `
		var frames = 0;
		exports.config = { title: "smoke" };
		exports.update = function () { frames++; };
	`)
	var out bytes.Buffer
	err := run(context.Background(), runParams{stdout: &out, game: dir, headless: true, frames: 2})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "glint  v"+version)
	assert.Contains(t, out.String(), "game.js (800x600 @ 60 fps)")
}

func TestRunReportsScriptFailure(t *testing.T) {
	dir := writeGame(t, `exports.update = function () { throw new Error("broken update"); };`)
	err := run(context.Background(), runParams{stdout: &bytes.Buffer{}, game: dir, headless: true, frames: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken update")
}

func TestRunFlagValidation(t *testing.T) {
	dir := writeGame(t, ``)
	err := run(context.Background(), runParams{stdout: &bytes.Buffer{}, game: dir, frames: 3})
	assert.EqualError(t, err, "--frames requires --headless")

	err = run(context.Background(), runParams{stdout: &bytes.Buffer{}, game: dir, headless: true, frames: -1})
	assert.Error(t, err)

	err = run(context.Background(), runParams{stdout: &bytes.Buffer{}, game: dir, headless: true, configPath: filepath.Join(dir, "absent.toml")})
	assert.ErrorContains(t, err, "load config")

	err = run(context.Background(), runParams{stdout: &bytes.Buffer{}, game: filepath.Join(dir, "absent"), headless: true})
	assert.ErrorContains(t, err, "open game")
}

func TestRootCommandArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"a", "b"}} {
		cmd := newRootCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute(), "%v", args)
	}
}

func TestNewLogger(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "bogus"},
	} {
		log, err := newLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, log)
	}
}
