package control_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/steamtarget/internal/auth"
	"github.com/Alia5/steamtarget/internal/control"
)

type fakeTarget struct {
	mu       sync.Mutex
	calls    []string
	resetErr error
}

func (f *fakeTarget) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeTarget) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTarget) ResetControllers(context.Context) error {
	f.record("reset")
	return f.resetErr
}

func (f *fakeTarget) EnableControllers(_ context.Context, enable bool) error {
	if enable {
		f.record("enable")
	} else {
		f.record("disable")
	}
	return nil
}

func (f *fakeTarget) ShowConsole(v bool) {
	if v {
		f.record("console on")
	} else {
		f.record("console off")
	}
}

func (f *fakeTarget) ShowOverlay(v bool) {
	if v {
		f.record("overlay on")
	} else {
		f.record("overlay off")
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestServeDispatches(t *testing.T) {
	target := &fakeTarget{}
	input := strings.Join([]string{
		"ShowConsole 1",
		"",
		"Bogus",
		"ShowOverlay 0",
		"EnableControllers 0",
		"EnableControllers 1",
		"ShowConsole x",
		"ResetControllers",
	}, "\r\n") + "\r\n"

	var out strings.Builder
	err := control.Serve(context.Background(), strings.NewReader(input), &out, control.NewTargetRouter(target), discard())
	require.NoError(t, err)

	assert.Equal(t, []string{"console on", "overlay off", "disable", "enable", "reset"}, target.Calls())
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "OK", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ERR unknown command"), lines[1])
	assert.Equal(t, "OK", lines[2])
	assert.True(t, strings.HasPrefix(lines[5], "ERR malformed command"), lines[5])
	assert.Equal(t, "OK", lines[6])
}

func TestServeReportsHandlerError(t *testing.T) {
	target := &fakeTarget{resetErr: errors.New("bus busy")}
	var out strings.Builder
	require.NoError(t, control.Serve(context.Background(), strings.NewReader("ResetControllers\n"), &out, control.NewTargetRouter(target), discard()))
	assert.Equal(t, "ERR bus busy\n", out.String())
}

func TestServeWithoutReplies(t *testing.T) {
	target := &fakeTarget{}
	require.NoError(t, control.Serve(context.Background(), strings.NewReader("ShowOverlay 1\n"), nil, control.NewTargetRouter(target), discard()))
	assert.Equal(t, []string{"overlay on"}, target.Calls())
}

func TestServeOverPipe(t *testing.T) {
	target := &fakeTarget{}
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- control.Serve(context.Background(), server, server, control.NewTargetRouter(target), discard())
		server.Close()
	}()

	r := bufio.NewReader(client)
	for _, line := range []string{"ShowConsole 0\n", "EnableControllers 1\n"} {
		_, err := client.Write([]byte(line))
		require.NoError(t, err)
		resp, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "OK\n", resp)
	}
	client.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, []string{"console off", "enable"}, target.Calls())
}

func TestServer(t *testing.T) {
	for _, password := range []string{"", "hunter2"} {
		t.Run("password="+password, func(t *testing.T) {
			target := &fakeTarget{}
			srv, err := control.NewServer("127.0.0.1:0", password, control.NewTargetRouter(target), discard())
			require.NoError(t, err)
			require.NoError(t, srv.Start(context.Background()))
			defer srv.Close()

			conn, err := net.Dial("tcp", srv.Addr())
			require.NoError(t, err)
			defer conn.Close()
			var rw net.Conn = conn
			if password != "" {
				rw, err = auth.SecureClient(conn, password)
				require.NoError(t, err)
			}

			r := bufio.NewReader(rw)
			_, err = rw.Write([]byte("ShowOverlay 1\n"))
			require.NoError(t, err)
			resp, err := r.ReadString('\n')
			require.NoError(t, err)
			assert.Equal(t, "OK\n", resp)

			_, err = rw.Write([]byte("Nope\n"))
			require.NoError(t, err)
			resp, err = r.ReadString('\n')
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(resp, "ERR "), resp)

			assert.Equal(t, []string{"overlay on"}, target.Calls())
		})
	}
}

func TestServerRejectsWrongPassword(t *testing.T) {
	target := &fakeTarget{}
	srv, err := control.NewServer("127.0.0.1:0", "right", control.NewTargetRouter(target), discard())
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = auth.SecureClient(conn, "wrong")
	assert.Error(t, err)
	assert.Empty(t, target.Calls())
}

func TestServerCloseDropsConnections(t *testing.T) {
	srv, err := control.NewServer("127.0.0.1:0", "", control.NewTargetRouter(&fakeTarget{}), discard())
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		srv.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on an idle connection")
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}
