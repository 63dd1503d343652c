package stdio_proxy

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	stdinR, stdinW := io.Pipe()
	var stdout bytes.Buffer

	done := make(chan struct{})
	go func() {
		Pipe(client, stdinR, &stdout)
		close(done)
	}()

	_, err := io.WriteString(stdinW, "Content-Length: 2\r\n\r\n{}")
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := io.ReadAtLeast(server, buf, len("Content-Length: 2\r\n\r\n{}"))
	require.NoError(t, err)
	assert.Equal(t, "Content-Length: 2\r\n\r\n{}", string(buf[:n]))

	_, err = server.Write([]byte("reply"))
	require.NoError(t, err)
	require.NoError(t, server.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for proxy to finish")
	}
	assert.Equal(t, "reply", stdout.String())
}

func TestRunWithoutServer(t *testing.T) {
	t.Parallel()

	me := &Handler{network: "unix"}
	err := me.Run(context.Background(), filepath.Join(t.TempDir(), "missing.sock"))
	require.Error(t, err)
}
