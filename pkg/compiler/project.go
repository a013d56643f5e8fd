package compiler

import (
	"context"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// TemplateExt is the extension of template source files.
const TemplateExt = ".gw"

// Result reports what a project generate run produced. Paths are relative
// to the project root.
type Result struct {
	// Compiled maps each template file to the output file written for it.
	Compiled map[string]string
	// Failed lists template files that did not compile.
	Failed []string
}

// GenerateProject discovers template files under root with the configured
// glob patterns, compiles each, and writes the generated Go next to it. A
// file that fails to compile does not stop the others; all failures come
// back aggregated after the run.
func GenerateProject(ctx context.Context, fsys afero.Fs, root string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	backend, err := ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	base := afero.NewBasePathFs(fsys, root)
	paths, err := discover(base, cfg.Patterns)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	res := &Result{Compiled: map[string]string{}}
	var merr *multierror.Error

	for _, path := range paths {
		src, err := afero.ReadFile(base, path)
		if err != nil {
			res.Failed = append(res.Failed, path)
			merr = multierror.Append(merr, errors.Errorf("reading %s: %w", path, err))
			continue
		}

		out, err := Compile(ctx, path, string(src), Options{Backend: backend, Package: cfg.Package})
		if err != nil {
			res.Failed = append(res.Failed, path)
			merr = multierror.Append(merr, errors.Errorf("%s: %w", path, err))
			continue
		}

		outPath := strings.TrimSuffix(path, TemplateExt) + cfg.Suffix
		if err := afero.WriteFile(base, outPath, out, 0o644); err != nil {
			res.Failed = append(res.Failed, path)
			merr = multierror.Append(merr, errors.Errorf("writing %s: %w", outPath, err))
			continue
		}

		res.Compiled[path] = outPath
		log.Debug().Str("template", path).Str("output", outPath).Msg("compiled template")
	}

	log.Info().
		Int("compiled", len(res.Compiled)).
		Int("failed", len(res.Failed)).
		Msg("generate run finished")
	return res, merr.ErrorOrNil()
}

// discover matches the glob patterns against the project tree, deduplicates,
// and keeps only template files.
func discover(base afero.Fs, patterns []string) ([]string, error) {
	iofs := afero.NewIOFS(base)
	seen := map[string]bool{}
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(iofs, pattern)
		if err != nil {
			return nil, errors.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !strings.HasSuffix(m, TemplateExt) || seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}

	sort.Strings(paths)
	return paths, nil
}
