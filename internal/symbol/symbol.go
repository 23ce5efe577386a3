// Package symbol resolves icon symbols into inline SVG markup.
//
// Icons are looked up once at startup through Resolve, which produces an
// immutable Table that is handed to the renderer by value.
package symbol

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
)

//go:embed icons/*.svg
var embedded embed.FS

// ErrUnknownSymbol is returned when no icon file exists for a symbol name.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Registry maps a symbolic icon name plus CSS classes to renderable markup.
type Registry interface {
	Lookup(name, classes string) (string, error)
}

// Request names an icon and the CSS classes it is rendered with.
type Request struct {
	Name    string
	Classes string
}

// The four icons used by validation fragments.
var (
	UserRequest    = Request{Name: "person-outline", Classes: "icon-sm"}
	GroupRequest   = Request{Name: "people-outline", Classes: "icon-sm"}
	AlertRequest   = Request{Name: "alert-circle-outline", Classes: "icon-md mas-table__icon-alert"}
	WarningRequest = Request{Name: "warning-outline", Classes: "icon-md mas-table__icon-warning"}
)

// Table holds resolved markup for every icon a fragment can contain.
// A zero field renders as nothing.
type Table struct {
	User    string
	Group   string
	Warning string
	Alert   string
}

// Resolve looks up the four fragment icons. A failed lookup is logged and
// leaves that entry empty; it never aborts startup.
func Resolve(ctx context.Context, reg Registry, logger *slog.Logger) Table {
	get := func(req Request) string {
		markup, err := reg.Lookup(req.Name, req.Classes)
		if err != nil {
			logger.WarnContext(ctx, "icon unavailable, rendering without it",
				"symbol", req.Name,
				"error", err,
			)
			return ""
		}
		return markup
	}
	return Table{
		User:    get(UserRequest),
		Group:   get(GroupRequest),
		Warning: get(WarningRequest),
		Alert:   get(AlertRequest),
	}
}

type cacheKey struct {
	name    string
	classes string
}

// FSRegistry serves <name>.svg files from an fs.FS and caches the result per
// name and class list.
type FSRegistry struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[cacheKey]string
}

// NewRegistry returns a registry reading icons from fsys.
func NewRegistry(fsys fs.FS) *FSRegistry {
	return &FSRegistry{
		fsys:  fsys,
		cache: make(map[cacheKey]string),
	}
}

// Default returns a registry over the embedded ionicons subset.
func Default() *FSRegistry {
	sub, err := fs.Sub(embedded, "icons")
	if err != nil {
		// icons/ is compiled in; Sub only fails on an invalid path literal.
		panic(err)
	}
	return NewRegistry(sub)
}

// Lookup implements Registry.
func (r *FSRegistry) Lookup(name, classes string) (string, error) {
	key := cacheKey{name: name, classes: classes}

	r.mu.RLock()
	markup, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return markup, nil
	}

	if name == "" || strings.ContainsAny(name, `/\`) || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: invalid name %q", ErrUnknownSymbol, name)
	}
	raw, err := fs.ReadFile(r.fsys, name+".svg")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
		}
		return "", fmt.Errorf("read symbol %s: %w", name, err)
	}
	markup, err = decorate(string(raw), classes)
	if err != nil {
		return "", fmt.Errorf("symbol %s: %w", name, err)
	}

	r.mu.Lock()
	r.cache[key] = markup
	r.mu.Unlock()
	return markup, nil
}

// decorate strips the <title> element and puts the classes and aria-hidden on
// the root <svg> element.
func decorate(svg, classes string) (string, error) {
	svg = strings.TrimSpace(svg)
	rest, ok := strings.CutPrefix(svg, "<svg")
	if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '>' && rest[0] != '\n' && rest[0] != '\t') {
		return "", errors.New("not an svg document")
	}
	if start := strings.Index(rest, "<title>"); start >= 0 {
		if end := strings.Index(rest[start:], "</title>"); end >= 0 {
			rest = rest[:start] + rest[start+end+len("</title>"):]
		}
	}

	var b strings.Builder
	b.WriteString("<svg")
	if classes != "" {
		b.WriteString(` class="`)
		b.WriteString(html.EscapeString(classes))
		b.WriteString(`"`)
	}
	b.WriteString(` aria-hidden="true"`)
	b.WriteString(rest)
	return b.String(), nil
}
