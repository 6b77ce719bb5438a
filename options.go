package mdoc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/dpotapov/go-mdoc/markdoc"

	"gopkg.in/yaml.v3"
)

// Options configures the plugin. The zero value is usable: HTML is preserved,
// no document wrapper is rendered and the default extensions are handled.
type Options struct {
	// HTML keeps raw HTML in documents as elements. Nil means true.
	HTML *bool `yaml:"html"`

	// AllowComments tokenizes <!-- --> as comments, which are not rendered.
	AllowComments bool `yaml:"allowComments"`

	// DocumentRenderTag wraps the rendered document in an element. Empty
	// renders no wrapper.
	DocumentRenderTag string `yaml:"documentRenderTag"`

	// Extensions are the file extensions compiled by the plugin.
	Extensions []string `yaml:"extensions"`

	// DeferTags are tags whose source is written to the output as is, for a
	// template engine that runs after Markdoc.
	DeferTags []string `yaml:"deferTags"`

	IncludeTags IncludeTags `yaml:"includeTags"`

	// UsePartials lists the directories partials are preloaded from.
	UsePartials SourceSpecs `yaml:"usePartials"`

	// Debug logs discovered partials and the registered tag tables.
	Debug bool `yaml:"debug"`

	// MaxDepth limits nested transforms (partials and paired shortcodes).
	// Zero means markdoc.DefaultMaxDepth.
	MaxDepth int `yaml:"maxDepth"`

	// Transform overrides the transform config, after everything the plugin
	// registers.
	Transform TransformOptions `yaml:"transform"`
}

// IncludeTags selects the optional tag sets.
type IncludeTags struct {
	// HTMLTagProxy is nil or true for the default proxy name, a string for a
	// custom name, or false to leave the proxy tag unregistered.
	HTMLTagProxy any `yaml:"htmlTagProxy"`

	// HTMLElements registers a tag for every HTML element.
	HTMLElements bool `yaml:"htmlElements"`
}

// TransformOptions are user overrides of the transform config.
type TransformOptions struct {
	Nodes     map[markdoc.NodeType]*markdoc.Schema `yaml:"-"`
	Tags      map[string]*markdoc.Schema           `yaml:"-"`
	Functions map[string]markdoc.FunctionSpec      `yaml:"-"`
	Variables map[string]any                       `yaml:"variables"`

	// Partials must hold *markdoc.Node values.
	Partials map[string]any `yaml:"-"`
}

// SourceSpec describes one directory of partials.
type SourceSpec struct {
	// FS is the file system to read from. Nil means os.DirFS(Cwd).
	FS fs.FS `yaml:"-"`

	// Cwd is the directory patterns are matched in. Relative paths are
	// resolved against the working directory of the process.
	Cwd string `yaml:"cwd"`

	// Patterns are doublestar glob patterns, e.g. "**/*.mdoc".
	Patterns Patterns `yaml:"patterns"`

	// Encoding is the character encoding of the files, e.g. "utf-8" or
	// "iso-8859-1". Empty means UTF-8.
	Encoding string `yaml:"encoding"`

	Debug *bool `yaml:"debug"`

	// PathPrefix is joined in front of every partial name.
	PathPrefix string `yaml:"pathPrefix"`

	// StripPrefix is removed from the front of relative paths.
	StripPrefix string `yaml:"stripPrefix"`

	// Ignore lists patterns of files to skip.
	Ignore Patterns `yaml:"ignore"`
}

// Patterns is a list of glob patterns. In YAML it may be a single string.
type Patterns []string

func (p *Patterns) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = Patterns{s}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*p = list
	return nil
}

// SourceSpecs is a list of partial sources. In YAML it may be a single
// mapping.
type SourceSpecs []SourceSpec

func (s *SourceSpecs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var spec SourceSpec
		if err := value.Decode(&spec); err != nil {
			return err
		}
		*s = SourceSpecs{spec}
		return nil
	}
	var list []SourceSpec
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// LoadOptions decodes YAML options. Unknown keys are an error.
func LoadOptions(r io.Reader) (Options, error) {
	var opts Options
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

var defaultExtensions = []string{"mdoc", "markdoc", "markdoc.md"}

// settings is the resolved, immutable form of Options.
type settings struct {
	html              bool
	allowComments     bool
	documentRenderTag string
	extensions        []string
	deferTags         []string
	proxyName         string
	proxyEnabled      bool
	htmlElements      bool
	sources           []SourceSpec
	debug             bool
	maxDepth          int
	transform         TransformOptions
	partials          map[string]*markdoc.Node
}

func (o Options) applyDefaults() Options {
	if o.HTML == nil {
		html := true
		o.HTML = &html
	}
	if len(o.Extensions) == 0 {
		o.Extensions = defaultExtensions
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = markdoc.DefaultMaxDepth
	}
	if o.IncludeTags.HTMLTagProxy == nil {
		o.IncludeTags.HTMLTagProxy = true
	}
	return o
}

// Validate checks the options without loading anything.
func (o Options) Validate() error {
	_, err := o.resolve()
	return err
}

func (o Options) resolve() (settings, error) {
	o = o.applyDefaults()
	s := settings{
		html:              *o.HTML,
		allowComments:     o.AllowComments,
		documentRenderTag: o.DocumentRenderTag,
		extensions:        slices.Clone(o.Extensions),
		deferTags:         slices.Clone(o.DeferTags),
		htmlElements:      o.IncludeTags.HTMLElements,
		sources:           slices.Clone(o.UsePartials),
		debug:             o.Debug,
		maxDepth:          o.MaxDepth,
		transform:         o.Transform,
	}

	var errs []error
	if o.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: maxDepth must not be negative, got %d", ErrConfig, o.MaxDepth))
	}

	switch v := o.IncludeTags.HTMLTagProxy.(type) {
	case bool:
		s.proxyEnabled = v
		s.proxyName = DefaultProxyName
	case string:
		s.proxyEnabled = true
		s.proxyName = v
	default:
		errs = append(errs, fmt.Errorf("%w: htmlTagProxy must be a string or a boolean, got %T", ErrConfig, v))
	}
	if s.proxyEnabled && !markdoc.IsIdentifier(s.proxyName) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidProxyName, s.proxyName))
	}

	partials, partialErrs := checkPartials(o.Transform.Partials)
	errs = append(errs, partialErrs...)
	s.partials = partials

	if err := errors.Join(errs...); err != nil {
		return settings{}, err
	}
	return s, nil
}

// checkPartials requires every user supplied partial to be a parsed AST and
// reports each one that is not.
func checkPartials(in map[string]any) (map[string]*markdoc.Node, []error) {
	out := make(map[string]*markdoc.Node, len(in))
	var errs []error
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		n, ok := in[k].(*markdoc.Node)
		if !ok || n == nil {
			errs = append(errs, &PartialTypeError{Key: k, Value: in[k]})
			continue
		}
		out[k] = n
	}
	return out, errs
}
