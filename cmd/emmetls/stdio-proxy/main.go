package stdio_proxy

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	network string
}

// NewStdioProxyCommand connects an editor that only speaks stdio to a server
// started with serve-lsp --listen.
func NewStdioProxyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "stdio-proxy [address]",
		Short: "relay stdin and stdout to a listening language server",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.network, "network", "unix", "network of the address (unix or tcp)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, me.network, addr)
	if err != nil {
		return errors.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	zerolog.Ctx(ctx).Debug().Str("addr", addr).Msg("proxy connected")
	Pipe(conn, os.Stdin, os.Stdout)
	return nil
}

// Pipe copies in to conn and conn to out until either direction ends.
func Pipe(conn io.ReadWriter, in io.Reader, out io.Writer) {
	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(conn, in)
		done <- struct{}{}
	}()

	go func() {
		_, _ = io.Copy(out, conn)
		done <- struct{}{}
	}()

	<-done
}
