package mdoc

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dpotapov/go-mdoc/markdoc"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// maxConcurrentReads bounds the number of partial files read at once.
const maxConcurrentReads = 16

// LoadPartials reads every file matched by the sources and parses it into an
// AST keyed by its path relative to the source directory. Fields set on a
// source override the same fields of global. Sources without patterns are
// skipped.
//
// Unreadable files are logged and skipped, as are sources whose patterns fail
// to match. Only context cancellation and an invalid proxy name are returned as
// errors.
func LoadPartials(ctx context.Context, sources []SourceSpec, global SourceSpec, tok *markdoc.Tokenizer, proxyName string, logger *slog.Logger) (map[string]*markdoc.Node, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tok == nil {
		tok = markdoc.NewTokenizer(markdoc.TokenizerOptions{AllowComments: true})
	}
	if proxyName == "" {
		proxyName = DefaultProxyName
	}
	if !markdoc.IsIdentifier(proxyName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyName, proxyName)
	}

	results := map[string]*markdoc.Node{}
	var mu sync.Mutex

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(src.Patterns) == 0 {
			continue
		}
		spec := src.over(global)
		debug := spec.Debug != nil && *spec.Debug

		cwd, err := resolveCwd(spec.Cwd)
		if err != nil {
			logger.Error("Resolve partials directory", "cwd", spec.Cwd, "error", err)
			continue
		}
		fsys := spec.FS
		if fsys == nil {
			fsys = os.DirFS(cwd)
		}

		enc, err := lookupEncoding(spec.Encoding)
		if err != nil {
			logger.Error("Partials encoding", "cwd", cwd, "encoding", spec.Encoding, "error", err)
			continue
		}

		if debug {
			logger.Info("Search partials", "cwd", cwd, "patterns", strings.Join(spec.Patterns, ", "))
		}
		files, err := globFiles(fsys, spec.Patterns, spec.Ignore)
		if err != nil {
			logger.Error("Glob partials", "cwd", cwd, "error", err)
			continue
		}
		if debug {
			logger.Info("Found partials", "cwd", cwd, "count", len(files))
		}

		var keys []string
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentReads)
		for _, name := range files {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				content, err := readFile(fsys, name, enc)
				if err != nil {
					logger.Warn("Read partial", "file", name, "cwd", cwd, "error", err)
					return nil
				}
				key := partialKey(name, spec.StripPrefix, spec.PathPrefix)
				ast := markdoc.Parse(reconcile(tok.Tokenize(content), proxyName))

				mu.Lock()
				results[key] = ast
				keys = append(keys, key)
				mu.Unlock()

				if debug {
					logger.Info("Read partial", "key", key, "file", name)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if debug {
			slices.Sort(keys)
			for _, key := range keys {
				logger.Info("Partial", "key", key, "ast", markdoc.DumpXML(results[key]))
			}
		}
	}

	if global.Debug != nil && *global.Debug {
		logger.Info("Loaded partials", "count", len(results))
	}
	return results, nil
}

// over returns s with unset fields taken from global.
func (s SourceSpec) over(global SourceSpec) SourceSpec {
	out := global
	if s.FS != nil {
		out.FS = s.FS
	}
	if s.Cwd != "" {
		out.Cwd = s.Cwd
	}
	if len(s.Patterns) > 0 {
		out.Patterns = s.Patterns
	}
	if s.Encoding != "" {
		out.Encoding = s.Encoding
	}
	if s.Debug != nil {
		out.Debug = s.Debug
	}
	if s.PathPrefix != "" {
		out.PathPrefix = s.PathPrefix
	}
	if s.StripPrefix != "" {
		out.StripPrefix = s.StripPrefix
	}
	if len(s.Ignore) > 0 {
		out.Ignore = s.Ignore
	}
	return out
}

func resolveCwd(cwd string) (string, error) {
	if cwd == "" {
		return os.Getwd()
	}
	if filepath.IsAbs(cwd) {
		return cwd, nil
	}
	return filepath.Abs(cwd)
}

// globFiles returns the regular files matching any pattern and no ignore
// pattern, sorted and without duplicates.
func globFiles(fsys fs.FS, patterns, ignore []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, cleanPattern(pattern))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			skip, err := matchAny(ignore, m)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(cleanPattern(p), name)
		if err != nil {
			return false, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func cleanPattern(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "./")
}

// partialKey turns a file path into a partial name: stripPrefix is removed,
// then pathPrefix is joined in front.
func partialKey(name, stripPrefix, pathPrefix string) string {
	rel := name
	if stripPrefix != "" && strings.HasPrefix(rel, stripPrefix) {
		rel = strings.TrimPrefix(rel, stripPrefix)
		rel = strings.TrimLeft(rel, `/\`)
	}
	if pathPrefix != "" {
		return path.Join(pathPrefix, rel)
	}
	return rel
}

var encodingAliases = map[string]string{
	"utf8":    "utf-8",
	"utf16le": "utf-16le",
	"ucs2":    "utf-16le",
	"ucs-2":   "utf-16le",
	"binary":  "latin1",
}

// lookupEncoding resolves a WHATWG encoding label. Nil means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := encodingAliases[label]; ok {
		label = alias
	}
	if label == "" || label == "utf-8" {
		return nil, nil
	}
	return htmlindex.Get(label)
}

func readFile(fsys fs.FS, name string, enc encoding.Encoding) (string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(b), nil
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(decoded), nil
}
