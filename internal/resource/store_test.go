package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type payload struct {
	name string
	seq  int
}

type harness struct {
	store    *Store[*payload]
	loads    int
	disposed []string
	logs     *observer.ObservedLogs
}

func newHarness() *harness {
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{logs: logs}
	h.store = NewStore("payload", func(name string, p *payload) {
		h.disposed = append(h.disposed, name)
	}, zap.New(core))
	return h
}

func (h *harness) loader(name string) Loader[*payload] {
	return func() (*payload, error) {
		h.loads++
		return &payload{name: name, seq: h.loads}, nil
	}
}

func TestLoadDeduplicatesByName(t *testing.T) {
	h := newHarness()
	a, err := h.store.Load("cat.png", h.loader("cat.png"))
	require.NoError(t, err)
	b, err := h.store.Load("cat.png", h.loader("cat.png"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.loads)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, h.store.Refs("cat.png"))

	pa, err := h.store.Borrow(a)
	require.NoError(t, err)
	pb, err := h.store.Borrow(b)
	require.NoError(t, err)
	assert.Same(t, pa, pb)
}

func TestReleaseLastHandleDisposesOnce(t *testing.T) {
	h := newHarness()
	a, _ := h.store.Load("cat.png", h.loader("cat.png"))
	b, _ := h.store.Load("cat.png", h.loader("cat.png"))

	require.NoError(t, h.store.Release(a))
	assert.Empty(t, h.disposed)
	require.NoError(t, h.store.Release(b))
	assert.Equal(t, []string{"cat.png"}, h.disposed)
	assert.Equal(t, 0, h.store.Len())

	_, err := h.store.Borrow(a)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestReloadAfterFullRelease(t *testing.T) {
	h := newHarness()
	a, _ := h.store.Load("cat.png", h.loader("cat.png"))
	first, _ := h.store.Borrow(a)
	require.NoError(t, h.store.Release(a))

	b, err := h.store.Load("cat.png", h.loader("cat.png"))
	require.NoError(t, err)
	second, _ := h.store.Borrow(b)
	assert.Equal(t, 2, h.loads)
	assert.NotSame(t, first, second)
}

func TestDoubleReleaseIsDetected(t *testing.T) {
	h := newHarness()
	a, _ := h.store.Load("cat.png", h.loader("cat.png"))
	b, _ := h.store.Load("cat.png", h.loader("cat.png"))

	require.NoError(t, h.store.Release(a))
	assert.ErrorIs(t, h.store.Release(a), ErrReleased)
	assert.Equal(t, 1, h.store.Refs("cat.png"), "a stale release must not steal b's reference")
	require.NoError(t, h.store.Release(b))
	assert.Equal(t, []string{"cat.png"}, h.disposed)

	assert.ErrorIs(t, h.store.Release(Handle{}), ErrReleased)
}

func TestLoadByName(t *testing.T) {
	h := newHarness()
	_, err := h.store.LoadByName("font")
	assert.ErrorIs(t, err, ErrNotFound)

	a, _ := h.store.Load("font", h.loader("font"))
	b, err := h.store.LoadByName("font")
	require.NoError(t, err)
	assert.Equal(t, 1, h.loads)
	assert.Equal(t, "font", b.Name())

	pa, _ := h.store.Borrow(a)
	pb, _ := h.store.Borrow(b)
	assert.Same(t, pa, pb)
}

func TestSameNameSharesFirstPayload(t *testing.T) {
	h := newHarness()
	small, _ := h.store.Load("ui", func() (*payload, error) { return &payload{name: "size16"}, nil })
	big, _ := h.store.Load("ui", func() (*payload, error) { return &payload{name: "size64"}, nil })
	p, _ := h.store.Borrow(big)
	assert.Equal(t, "size16", p.name)
	q, _ := h.store.Borrow(small)
	assert.Same(t, p, q)
}

func TestLoaderErrorLeavesNothingResident(t *testing.T) {
	h := newHarness()
	boom := errors.New("malformed image")
	_, err := h.store.Load("bad.png", func() (*payload, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `"bad.png"`)
	assert.Equal(t, 0, h.store.Len())

	_, err = h.store.LoadByName("bad.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseReportsLeaks(t *testing.T) {
	h := newHarness()
	h.store.Load("a", h.loader("a"))
	h.store.Load("a", h.loader("a"))
	released, _ := h.store.Load("b", h.loader("b"))
	require.NoError(t, h.store.Release(released))
	h.store.Load("c", h.loader("c"))

	assert.Equal(t, 2, h.store.Close())
	assert.ElementsMatch(t, []string{"b", "a", "c"}, h.disposed)

	leaks := h.logs.FilterMessage("resource leaked").All()
	require.Len(t, leaks, 2)
	assert.Equal(t, "a", leaks[0].ContextMap()["name"])
	assert.Equal(t, int64(2), leaks[0].ContextMap()["refs"])

	_, err := h.store.Load("d", h.loader("d"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.store.Close())
}
