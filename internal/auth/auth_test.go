package auth_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/steamtarget/internal/auth"
)

func TestDeriveKey(t *testing.T) {
	_, err := auth.DeriveKey("")
	assert.Error(t, err)

	k1, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)
	k2, err := auth.DeriveKey("hunter2")
	require.NoError(t, err)
	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)

	s1 := auth.DeriveSessionKey(k1, []byte("a"), []byte("b"))
	s2 := auth.DeriveSessionKey(k1, []byte("b"), []byte("a"))
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}

func TestHandshake(t *testing.T) {
	good, err := auth.DeriveKey("secret")
	require.NoError(t, err)
	bad, err := auth.DeriveKey("wrong")
	require.NoError(t, err)

	tests := []struct {
		name      string
		clientKey []byte
		wantErr   error
	}{
		{name: "matching keys", clientKey: good},
		{name: "wrong password", clientKey: bad, wantErr: auth.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()

			srvErr := make(chan error, 1)
			var srvNonces [2][]byte
			go func() {
				defer server.Close()
				cn, sn, err := auth.ServerHandshake(bufio.NewReader(server), server, good)
				srvNonces = [2][]byte{cn, sn}
				srvErr <- err
			}()

			cn, sn, err := auth.ClientHandshake(bufio.NewReader(client), client, tt.clientKey)
			serr := <-srvErr
			if tt.wantErr != nil {
				assert.ErrorIs(t, serr, tt.wantErr)
				assert.ErrorIs(t, err, auth.ErrUnauthorized)
				return
			}
			require.NoError(t, serr)
			require.NoError(t, err)
			assert.Equal(t, srvNonces[0], cn)
			assert.Equal(t, srvNonces[1], sn)
		})
	}
}

func TestClientHandshakeRejectedReply(t *testing.T) {
	key, err := auth.DeriveKey("x")
	require.NoError(t, err)
	reply := bufio.NewReader(bytes.NewBufferString(`{"status":401,"title":"Unauthorized"}` + "\n"))
	_, _, err = auth.ClientHandshake(reply, io.Discard, key)
	var rej *auth.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Contains(t, rej.Reply, "Unauthorized")
}

func TestIsHandshake(t *testing.T) {
	ok, err := auth.IsHandshake(bufio.NewReader(bytes.NewBufferString(auth.HandshakeMagic + "rest")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.IsHandshake(bufio.NewReader(bytes.NewBufferString("ResetControllers\n")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecureRoundTrip(t *testing.T) {
	key, err := auth.DeriveKey("pw")
	require.NoError(t, err)
	client, server := net.Pipe()

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sc, err := auth.SecureServer(server, nil, key)
		if err != nil {
			done <- result{err: err}
			return
		}
		line, err := bufio.NewReader(sc).ReadString('\n')
		if err == nil {
			_, err = sc.Write([]byte("OK\n"))
		}
		done <- result{line: line, err: err}
	}()

	cc, err := auth.SecureClient(client, "pw")
	require.NoError(t, err)
	_, err = cc.Write([]byte("ShowConsole 1\n"))
	require.NoError(t, err)

	reply := make([]byte, 3)
	_, err = io.ReadFull(cc, reply)
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "ShowConsole 1\n", res.line)
	assert.Equal(t, "OK\n", string(reply))
	_ = cc.Close()
	_ = server.Close()
}

func TestConnRejectsForeignKey(t *testing.T) {
	k1 := auth.DeriveSessionKey([]byte("a"), nil, nil)
	k2 := auth.DeriveSessionKey([]byte("b"), nil, nil)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc, err := auth.WrapConn(client, k1)
	require.NoError(t, err)
	sc, err := auth.WrapConn(server, k2)
	require.NoError(t, err)

	go func() { _, _ = cc.Write([]byte("x")) }()
	_, err = sc.Read(make([]byte, 8))
	assert.Error(t, err)

	_, err = auth.WrapConn(client, []byte("short"))
	assert.Error(t, err)
}
