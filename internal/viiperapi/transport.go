package viiperapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Alia5/steamtarget/internal/auth"
)

// Config controls dialing, timeouts and the optional session password.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Responder stands in for the network in tests.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport speaks the VIIPER management protocol: one request per
// connection, framed as `<path>[ <payload>]\x00`, answered by a single line
// before the server closes.
type Transport struct {
	addr string
	cfg  Config
	mock Responder
}

// NewTransport creates a transport for addr. A nil cfg uses the defaults.
func NewTransport(addr string, cfg *Config) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
		if c.DialTimeout == 0 {
			c.DialTimeout = defaultConfig().DialTimeout
		}
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport returns canned responses without networking.
func NewMockTransport(r Responder) *Transport {
	return &Transport{addr: "mock", cfg: defaultConfig(), mock: r}
}

// dial opens a connection and, when a password is configured, secures it.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	if t.cfg.Password == "" {
		return conn, nil
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	sc, err := auth.SecureClient(conn, t.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	return sc, nil
}

// Do sends one request and returns the response line without its trailing newline.
func (t *Transport) Do(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	line := []byte(fillPath(path, pathParams))
	if pb := toPayloadBytes(payload); len(pb) > 0 {
		line = append(append(line, ' '), pb...)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(append(line, '\x00')); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func toPayloadBytes(v any) []byte {
	switch p := v.(type) {
	case nil:
		return nil
	case []byte:
		return p
	case string:
		return []byte(p)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	}
}
