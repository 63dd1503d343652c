package replay

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/config"
	"github.com/walteh/emmetls/pkg/replay"
	"github.com/walteh/emmetls/pkg/report"
)

type Handler struct {
	configPath string
	color      bool

	fs  afero.Fs
	out io.Writer
}

func NewReplayCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "replay [script.yaml]",
		Short: "replay a scripted editing session and print the tracker after each step",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.configPath, "config", "", "settings file (yaml, toml or hcl)")
	cmd.Flags().BoolVar(&me.color, "color", isTerminal(), "colorize output")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, path string) error {
	settings := config.Defaults()
	if me.configPath != "" {
		loaded, err := config.Load(me.fs, me.configPath)
		if err != nil {
			return errors.Errorf("loading settings: %w", err)
		}
		settings = loaded
	}

	f, err := me.fs.Open(path)
	if err != nil {
		return errors.Errorf("opening script: %w", err)
	}
	defer f.Close()

	script, err := replay.Load(f)
	if err != nil {
		return errors.Errorf("loading %s: %w", path, err)
	}

	if _, err := replay.Run(ctx, script, settings, report.NewPrinter(me.out, me.color)); err != nil {
		return errors.Errorf("replaying %s: %w", path, err)
	}
	return nil
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
