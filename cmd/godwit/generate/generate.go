// Package generate implements `godwit generate`: discover template files,
// compile each one, and write the generated Go sources next to them.
package generate

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/godwitml/godwit/pkg/compiler"
	"github.com/godwitml/godwit/pkg/debug"
)

type Handler struct {
	dir      string
	backend  string
	suffix   string
	pkg      string
	patterns []string
	verbose  bool

	fs afero.Fs
}

func NewGenerateCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "compile .gw template files to Go source",
	}

	cmd.Flags().StringVar(&me.dir, "dir", ".", "project root to scan for templates")
	cmd.Flags().StringVar(&me.backend, "backend", "", "code generation backend (writer or gomponents)")
	cmd.Flags().StringVar(&me.suffix, "suffix", "", "output file suffix replacing .gw")
	cmd.Flags().StringVar(&me.pkg, "package", "", "override the package clause of generated files")
	cmd.Flags().StringArrayVar(&me.patterns, "pattern", nil, "glob pattern selecting template files (repeatable)")
	cmd.Flags().BoolVar(&me.verbose, "verbose", false, "enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		logger := debug.NewLogger(os.Stderr, me.verbose)
		return me.Run(logger.WithContext(cmd.Context()))
	}

	return cmd
}

// Run loads the project configuration, applies flag overrides, and executes
// the generate run.
func (me *Handler) Run(ctx context.Context) error {
	cfg, err := compiler.LoadConfig(me.fs, me.dir)
	if err != nil {
		return errors.Errorf("loading project config: %w", err)
	}

	if me.backend != "" {
		cfg.Backend = me.backend
	}
	if me.suffix != "" {
		cfg.Suffix = me.suffix
	}
	if me.pkg != "" {
		cfg.Package = me.pkg
	}
	if len(me.patterns) > 0 {
		cfg.Patterns = me.patterns
	}

	if _, err := compiler.GenerateProject(ctx, me.fs, me.dir, cfg); err != nil {
		return errors.Errorf("generating templates: %w", err)
	}

	return nil
}
