package mdoc

import (
	"context"
	"fmt"
	"log/slog"
)

// HostVersionConstraint is the range of host versions the plugin works with.
const HostVersionConstraint = ">=3.0.0-alpha.1"

// TemplateFormat is the template format the plugin registers.
const TemplateFormat = "mdoc"

// RenderFunc renders a compiled document with the page data of one render.
type RenderFunc func(ctx context.Context, data map[string]any) (string, error)

// Extension compiles documents of the file extensions it is registered for.
type Extension struct {
	Compile func(content, inputPath string) (RenderFunc, error)
}

// Host is the static site generator the plugin is installed into.
type Host interface {
	// VersionCheck fails if the host version does not satisfy constraint.
	VersionCheck(constraint string) error

	Filters() map[string]Func
	Shortcodes() map[string]Func
	PairedShortcodes() map[string]Func

	AddTemplateFormats(formats ...string)
	AddExtension(exts []string, ext Extension)
}

// Register installs the plugin into host. The host callables registered at
// this point are exposed to documents; ones added later are not.
func Register(ctx context.Context, host Host, opts Options, logger *slog.Logger) (*Plugin, error) {
	if err := host.VersionCheck(HostVersionConstraint); err != nil {
		return nil, fmt.Errorf("host version: %w", err)
	}

	reg := Registry{
		Filters:          host.Filters(),
		Shortcodes:       host.Shortcodes(),
		PairedShortcodes: host.PairedShortcodes(),
	}
	p, err := New(ctx, reg, opts, logger)
	if err != nil {
		return nil, err
	}

	host.AddTemplateFormats(TemplateFormat)
	host.AddExtension(p.Extensions(), Extension{Compile: p.Compile})
	return p, nil
}
