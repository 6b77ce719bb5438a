package mdoc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/dpotapov/go-mdoc/markdoc"
)

// Plugin compiles Markdoc documents with the callables of a Registry. It is
// immutable after New, so Compile and the functions it returns may be used
// concurrently.
type Plugin struct {
	settings  settings
	logger    *slog.Logger
	tokenizer *markdoc.Tokenizer
	entries   []Entry

	// config is the transform config shared by every document. Variables are
	// merged in per render.
	config markdoc.Config
}

// New builds a plugin. Partials are loaded before New returns.
func New(ctx context.Context, reg Registry, opts Options, logger *slog.Logger) (*Plugin, error) {
	s, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Plugin{
		settings: s,
		logger:   logger,
		tokenizer: markdoc.NewTokenizer(markdoc.TokenizerOptions{
			HTML:          s.html,
			AllowComments: s.allowComments,
		}),
		entries: Entries(reg),
	}

	partials, err := p.loadPartials(ctx)
	if err != nil {
		return nil, err
	}
	p.config = p.buildConfig(reg, partials)

	if s.debug {
		p.logTables()
	}
	return p, nil
}

func (p *Plugin) loadPartials(ctx context.Context) (map[string]*markdoc.Node, error) {
	out := map[string]*markdoc.Node{}
	if len(p.settings.sources) > 0 {
		tok := markdoc.NewTokenizer(markdoc.TokenizerOptions{HTML: p.settings.html, AllowComments: true})
		debug := p.settings.debug
		loaded, err := LoadPartials(ctx, p.settings.sources, SourceSpec{Debug: &debug}, tok, p.settings.proxyName, p.logger)
		if err != nil {
			return nil, fmt.Errorf("load partials: %w", err)
		}
		maps.Copy(out, loaded)
	}
	maps.Copy(out, p.settings.partials)
	return out, nil
}

// buildConfig layers the tag tables, later layers overriding earlier ones.
func (p *Plugin) buildConfig(reg Registry, partials map[string]*markdoc.Node) markdoc.Config {
	s := p.settings

	tags := map[string]*markdoc.Schema{}
	if s.html && s.proxyEnabled {
		tags[s.proxyName] = ProxyTag()
	}
	if s.htmlElements {
		maps.Copy(tags, ElementTags())
	}
	maps.Copy(tags, ShortcodesToTags(reg.Shortcodes))
	maps.Copy(tags, PairedShortcodesToTags(reg.PairedShortcodes, s.proxyName))
	maps.Copy(tags, DeferredTags(s.deferTags))
	maps.Copy(tags, s.transform.Tags)

	functions := map[string]markdoc.FunctionSpec{}
	maps.Copy(functions, FiltersToFunctions(reg.Filters))
	maps.Copy(functions, ShortcodesToFunctions(reg.Shortcodes))
	maps.Copy(functions, s.transform.Functions)

	nodes := map[markdoc.NodeType]*markdoc.Schema{
		markdoc.NodeDocument: {
			Render: s.documentRenderTag,
			Attributes: map[string]markdoc.AttributeSpec{
				"frontmatter": {Omit: true},
			},
		},
	}
	maps.Copy(nodes, s.transform.Nodes)

	return markdoc.Config{
		Nodes:     nodes,
		Tags:      tags,
		Functions: functions,
		Partials:  partials,
		MaxDepth:  s.maxDepth,
	}
}

func (p *Plugin) logTables() {
	for _, e := range p.entries {
		p.logger.Info("Adapter entry", "name", e.Name, "kind", e.Kind.String())
	}
	p.logger.Info("Registered tags", "tags", slices.Sorted(maps.Keys(p.config.Tags)))
	p.logger.Info("Registered functions", "functions", slices.Sorted(maps.Keys(p.config.Functions)))
	p.logger.Info("Registered partials", "partials", slices.Sorted(maps.Keys(p.config.Partials)))
}

// Entries returns the adapter entries of the registry the plugin was built
// with.
func (p *Plugin) Entries() []Entry {
	return slices.Clone(p.entries)
}

// Extensions returns the file extensions the plugin compiles.
func (p *Plugin) Extensions() []string {
	return slices.Clone(p.settings.extensions)
}

// unproxied reports a finding on a reconciled HTML element while the proxy
// tag is disabled. Such elements render their children only.
func (p *Plugin) unproxied(f markdoc.ValidateError) bool {
	s := p.settings
	return s.html && !s.proxyEnabled && f.Err.ID == "tag-undefined" && f.Tag == s.proxyName
}

// Compile parses a document once. Validation findings are logged as warnings
// and do not stop compilation.
func (p *Plugin) Compile(content, inputPath string) (RenderFunc, error) {
	tokens := p.tokenizer.Tokenize(content)
	if p.settings.html {
		var err error
		if tokens, err = Reconcile(tokens, p.settings.proxyName); err != nil {
			return nil, err
		}
	}
	doc := markdoc.Parse(tokens)

	for _, f := range markdoc.Validate(doc, &p.config) {
		if p.unproxied(f) {
			continue
		}
		p.logger.Warn("Validate document", "path", inputPath, "line", f.Line, "level", f.Err.Level, "error", f.Error())
	}

	// Front matter of the document is the lowest variable layer, for hosts that
	// do not parse it themselves.
	var frontmatter map[string]any
	if v, ok := doc.Attributes.Get("frontmatter"); ok {
		frontmatter, _ = v.(map[string]any)
	}

	return func(ctx context.Context, data map[string]any) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cfg := p.config.WithVariables(frontmatter).WithVariables(data).WithVariables(p.settings.transform.Variables)
		out, err := markdoc.Transform(doc, cfg)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", inputPath, err)
		}
		return markdoc.RenderHTML(out), nil
	}, nil
}
