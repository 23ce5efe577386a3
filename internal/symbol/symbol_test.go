package symbol

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFS struct {
	fs.FS
	opens atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	return c.FS.Open(name)
}

type failingRegistry struct {
	fail map[string]bool
}

func (f failingRegistry) Lookup(name, classes string) (string, error) {
	if f.fail[name] {
		return "", errors.New("boom")
	}
	return "<svg>" + name + "|" + classes + "</svg>", nil
}

func TestDefaultRegistryResolvesFragmentIcons(t *testing.T) {
	reg := Default()
	for _, req := range []Request{UserRequest, GroupRequest, AlertRequest, WarningRequest} {
		markup, err := reg.Lookup(req.Name, req.Classes)
		require.NoError(t, err, req.Name)
		assert.Contains(t, markup, `<svg class="`+req.Classes+`" aria-hidden="true"`)
		assert.NotContains(t, markup, "<title>")
	}
}

func TestLookupUnknownSymbol(t *testing.T) {
	reg := Default()

	_, err := reg.Lookup("does-not-exist", "icon-sm")
	require.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = reg.Lookup("../symbol", "icon-sm")
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestLookupRejectsNonSVG(t *testing.T) {
	reg := NewRegistry(fstest.MapFS{
		"broken.svg": &fstest.MapFile{Data: []byte("<svgx/>")},
	})
	_, err := reg.Lookup("broken", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownSymbol)
}

func TestLookupIsCachedAndIdempotent(t *testing.T) {
	fsys := &countingFS{FS: fstest.MapFS{
		"dot.svg": &fstest.MapFile{Data: []byte(`<svg viewBox="0 0 1 1"><title>Dot</title><circle r="1"/></svg>`)},
	}}
	reg := NewRegistry(fsys)

	first, err := reg.Lookup("dot", "icon-sm")
	require.NoError(t, err)
	assert.Equal(t, `<svg class="icon-sm" aria-hidden="true" viewBox="0 0 1 1"><circle r="1"/></svg>`, first)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := reg.Lookup("dot", "icon-sm")
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fsys.opens.Load())

	other, err := reg.Lookup("dot", "icon-md")
	require.NoError(t, err)
	assert.Contains(t, other, `class="icon-md"`)
	assert.Equal(t, int32(2), fsys.opens.Load())
}

func TestClassesAreEscaped(t *testing.T) {
	reg := NewRegistry(fstest.MapFS{
		"dot.svg": &fstest.MapFile{Data: []byte(`<svg></svg>`)},
	})
	markup, err := reg.Lookup("dot", `a" onload="x`)
	require.NoError(t, err)
	assert.Equal(t, `<svg class="a&#34; onload=&#34;x" aria-hidden="true"></svg>`, markup)
}

func TestResolveToleratesFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	reg := failingRegistry{fail: map[string]bool{WarningRequest.Name: true}}

	table := Resolve(context.Background(), reg, logger)

	assert.Equal(t, "<svg>person-outline|icon-sm</svg>", table.User)
	assert.Equal(t, "<svg>people-outline|icon-sm</svg>", table.Group)
	assert.Equal(t, "<svg>alert-circle-outline|icon-md mas-table__icon-alert</svg>", table.Alert)
	assert.Empty(t, table.Warning)
	assert.Contains(t, logs.String(), "icon unavailable")
}
