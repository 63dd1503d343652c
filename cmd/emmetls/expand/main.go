package expand

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/abbreviation"
	"github.com/walteh/emmetls/pkg/config"
	"github.com/walteh/emmetls/pkg/engine"
	"github.com/walteh/emmetls/pkg/report"
)

type Handler struct {
	syntax     string
	configPath string
	tabstops   bool
	color      bool

	out io.Writer
}

func NewExpandCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "expand [abbreviation]",
		Short: "expand an abbreviation and print the result",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.syntax, "syntax", "html", "syntax to expand with")
	cmd.Flags().StringVar(&me.configPath, "config", "", "settings file (yaml, toml or hcl)")
	cmd.Flags().BoolVar(&me.tabstops, "tabstops", false, "keep ${n} tab-stops in the output")
	cmd.Flags().BoolVar(&me.color, "color", false, "colorize errors")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, abbr string) error {
	settings := config.Defaults()
	if me.configPath != "" {
		loaded, err := config.Load(afero.NewOsFs(), me.configPath)
		if err != nil {
			return errors.Errorf("loading settings: %w", err)
		}
		settings = loaded
	}

	cfg, err := settings.EngineConfig(me.syntax, "")
	if err != nil {
		return errors.Errorf("configuring %q: %w", me.syntax, err)
	}
	field := engine.FieldPreview
	if me.tabstops {
		field = engine.FieldTabstop
	}

	out, err := abbreviation.New().Expand(abbr, cfg.With(engine.WithField(field)))
	if err != nil {
		var serr *engine.SyntaxError
		if errors.As(err, &serr) {
			report.NewPrinter(me.out, me.color).Error(abbr, serr.FirstLine(), serr.Pos)
		}
		return errors.Errorf("expanding %q: %w", abbr, err)
	}

	fmt.Fprintln(me.out, out)
	return nil
}
