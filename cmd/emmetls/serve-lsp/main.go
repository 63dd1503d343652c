package serve_lsp

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/emmetls/pkg/config"
	"github.com/walteh/emmetls/pkg/debug"
	"github.com/walteh/emmetls/pkg/lsp"
)

type Handler struct {
	debug         bool
	configPath    string
	clientLogging bool
	listen        string
	version       string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin and stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.configPath, "config", "", "settings file (yaml, toml or hcl), reloaded when it changes")
	cmd.Flags().BoolVar(&me.clientLogging, "log-to-client", false, "send logs to the client as window/logMessage")
	cmd.Flags().StringVar(&me.listen, "listen", "", "serve one client on this unix socket instead of stdio")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.version = cmd.Root().Version
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	level := zerolog.InfoLevel
	if me.debug {
		level = zerolog.DebugLevel
	}
	// stdout carries the protocol
	logger := debug.NewConsoleLogger(os.Stderr, level, false)
	ctx = logger.WithContext(ctx)

	fs := afero.NewOsFs()
	settings := config.Defaults()
	if me.configPath != "" {
		loaded, err := config.Load(fs, me.configPath)
		if err != nil {
			return errors.Errorf("loading settings: %w", err)
		}
		settings = loaded
	}

	server := lsp.NewServer(ctx,
		lsp.WithSettings(settings),
		lsp.WithClientLogging(me.clientLogging),
		lsp.WithVersion(me.version),
	)

	if me.configPath != "" {
		go func() {
			err := config.Watch(ctx, fs, me.configPath, func(s *config.Settings) {
				server.UpdateSettings(ctx, s)
			})
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("settings will not be reloaded")
			}
		}()
	}

	instance := server.BuildServerInstance(ctx)

	var r io.Reader = os.Stdin
	var w io.WriteCloser = os.Stdout
	if me.listen != "" {
		conn, err := accept(ctx, me.listen)
		if err != nil {
			return err
		}
		r, w = conn, conn
	}

	zerolog.Ctx(ctx).Info().Str("version", me.version).Msg("language server started")
	if err := instance.StartAndWait(r, w); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

// accept waits for the first client on a unix socket at path.
func accept(ctx context.Context, path string) (net.Conn, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, errors.Errorf("listening on %s: %w", path, err)
	}
	defer l.Close()

	zerolog.Ctx(ctx).Info().Str("socket", path).Msg("waiting for client")
	conn, err := l.Accept()
	if err != nil {
		return nil, errors.Errorf("accepting client: %w", err)
	}
	return conn, nil
}
