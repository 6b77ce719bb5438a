package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	mdoc "github.com/dpotapov/go-mdoc"
)

//go:embed content
var content embed.FS

// site is a minimal host: it owns the callables and the compilers registered
// for file extensions.
type site struct {
	filters    map[string]mdoc.Func
	shortcodes map[string]mdoc.Func
	paired     map[string]mdoc.Func

	formats    []string
	extensions map[string]mdoc.Extension
}

var _ mdoc.Host = (*site)(nil)

func newSite() *site {
	return &site{
		filters: map[string]mdoc.Func{
			"upper": func(args ...any) (any, error) {
				return strings.ToUpper(fmt.Sprint(args...)), nil
			},
		},
		shortcodes: map[string]mdoc.Func{
			"year": func(...any) (any, error) {
				return strconv.Itoa(time.Now().Year()), nil
			},
		},
		paired: map[string]mdoc.Func{
			"callout": func(args ...any) (any, error) {
				title := "Info"
				if len(args) > 1 {
					title = fmt.Sprint(args[1])
				}
				return fmt.Sprintf("<aside>\n\n**%s**\n\n%s\n\n</aside>", title, args[0]), nil
			},
		},
		extensions: map[string]mdoc.Extension{},
	}
}

func (s *site) VersionCheck(string) error              { return nil }
func (s *site) Filters() map[string]mdoc.Func          { return s.filters }
func (s *site) Shortcodes() map[string]mdoc.Func       { return s.shortcodes }
func (s *site) PairedShortcodes() map[string]mdoc.Func { return s.paired }

func (s *site) AddTemplateFormats(formats ...string) {
	s.formats = append(s.formats, formats...)
}

func (s *site) AddExtension(exts []string, ext mdoc.Extension) {
	for _, e := range exts {
		s.extensions[e] = ext
	}
}

func (s *site) build(ctx context.Context, fsys fs.FS, name string, data map[string]any) (string, error) {
	ext := strings.TrimPrefix(name[strings.IndexByte(name, '.'):], ".")
	compiler, ok := s.extensions[ext]
	if !ok {
		return "", fmt.Errorf("no compiler for %s", name)
	}
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	render, err := compiler.Compile(string(src), name)
	if err != nil {
		return "", err
	}
	return render(ctx, data)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	pages, err := fs.Sub(content, "content")
	if err != nil {
		logger.Error("Open content", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	s := newSite()
	_, err = mdoc.Register(ctx, s, mdoc.Options{
		DocumentRenderTag: "main",
		UsePartials: mdoc.SourceSpecs{{
			FS:          pages,
			Patterns:    mdoc.Patterns{"partials/*.mdoc"},
			StripPrefix: "partials",
		}},
		Debug: true,
	}, logger)
	if err != nil {
		logger.Error("Register plugin", "error", err)
		os.Exit(1)
	}

	out, err := s.build(ctx, pages, "index.mdoc", map[string]any{
		"site": map[string]any{"name": "example"},
		"page": map[string]any{"draft": false},
	})
	if err != nil {
		logger.Error("Build page", "error", err)
		os.Exit(1)
	}
	fmt.Println(out)
}
