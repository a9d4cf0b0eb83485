package cache

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// ValkeyConfig holds connection parameters for a Valkey/Redis-compatible server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// ValkeyProvider implements Provider over RESP2. Each command uses a short-lived
// connection, so the provider holds no pooled state.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider validates connectivity with a PING before returning.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	applyValkeyDefaults(&cfg)
	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("valkey ping %s: %w", cfg.Addr, err)
	}
	return p, nil
}

// Ping checks the server answers PONG.
func (p *ValkeyProvider) Ping(ctx context.Context) error {
	r, err := p.exec(ctx, "PING")
	if err != nil {
		return err
	}
	if r.kind != '+' || string(r.data) != "PONG" {
		return fmt.Errorf("unexpected PING reply %q", r.data)
	}
	return nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := p.exec(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch {
	case r.null:
		return nil, ErrCacheMiss
	case r.kind == '$':
		return r.data, nil
	default:
		return nil, fmt.Errorf("unexpected GET reply type %q", r.kind)
	}
}

// Set stores bytes; ttl <= 0 stores without expiry.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	r, err := p.exec(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if r.kind != '+' || string(r.data) != "OK" {
		return fmt.Errorf("unexpected SET reply %q", r.data)
	}
	return nil
}

// Del removes a key.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.exec(ctx, "DEL", key)
	return err
}

// Close is a no-op; connections are not pooled.
func (p *ValkeyProvider) Close() error { return nil }

type respReply struct {
	kind byte
	data []byte
	null bool
}

// exec runs one command on a fresh connection, retrying transient network errors.
func (p *ValkeyProvider) exec(ctx context.Context, cmd string, args ...string) (respReply, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return respReply{}, err
		}
		r, err := p.execOnce(ctx, cmd, args)
		if err == nil {
			return r, nil
		}
		lastErr = err
		if !isTransient(err) {
			return respReply{}, err
		}
		select {
		case <-ctx.Done():
			return respReply{}, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * 25 * time.Millisecond):
		}
	}
	return respReply{}, lastErr
}

func (p *ValkeyProvider) execOnce(ctx context.Context, cmd string, args []string) (respReply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return respReply{}, err
	}
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	if p.cfg.Password != "" {
		auth := []string{p.cfg.Password}
		if p.cfg.Username != "" {
			auth = []string{p.cfg.Username, p.cfg.Password}
		}
		if err := p.roundTripOK(conn, rw, "AUTH", auth); err != nil {
			return respReply{}, fmt.Errorf("auth: %w", err)
		}
	}
	if p.cfg.DB > 0 {
		if err := p.roundTripOK(conn, rw, "SELECT", []string{strconv.Itoa(p.cfg.DB)}); err != nil {
			return respReply{}, fmt.Errorf("select: %w", err)
		}
	}
	return p.roundTrip(conn, rw, cmd, args)
}

func (p *ValkeyProvider) roundTripOK(conn net.Conn, rw *bufio.ReadWriter, cmd string, args []string) error {
	r, err := p.roundTrip(conn, rw, cmd, args)
	if err != nil {
		return err
	}
	if r.kind != '+' {
		return fmt.Errorf("unexpected %s reply %q", cmd, r.data)
	}
	return nil
}

func (p *ValkeyProvider) roundTrip(conn net.Conn, rw *bufio.ReadWriter, cmd string, args []string) (respReply, error) {
	if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return respReply{}, err
	}
	if _, err := rw.Write(encodeCommand(cmd, args...)); err != nil {
		return respReply{}, err
	}
	if err := rw.Flush(); err != nil {
		return respReply{}, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return respReply{}, err
	}
	return readReply(rw.Reader)
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	if !p.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(p.cfg.Addr)
	if err != nil {
		host = p.cfg.Addr
	}
	td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}}
	return td.DialContext(ctx, "tcp", p.cfg.Addr)
}

func encodeCommand(cmd string, args ...string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "*%d\r\n", len(args)+1)
	for _, part := range append([]string{cmd}, args...) {
		fmt.Fprintf(&buf, "$%d\r\n%s\r\n", len(part), part)
	}
	return buf.Bytes()
}

func readReply(r *bufio.Reader) (respReply, error) {
	line, err := readLine(r)
	if err != nil {
		return respReply{}, err
	}
	if len(line) == 0 {
		return respReply{}, errors.New("empty RESP line")
	}
	kind, body := line[0], line[1:]
	switch kind {
	case '+', ':':
		return respReply{kind: kind, data: body}, nil
	case '-':
		return respReply{}, fmt.Errorf("valkey: %s", body)
	case '$':
		size, err := strconv.Atoi(string(body))
		if err != nil {
			return respReply{}, fmt.Errorf("bulk length: %w", err)
		}
		if size < 0 {
			return respReply{kind: kind, null: true}, nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return respReply{}, err
		}
		if !bytes.HasSuffix(buf, []byte("\r\n")) {
			return respReply{}, errors.New("bulk string missing CRLF")
		}
		return respReply{kind: kind, data: buf[:size]}, nil
	case '_':
		return respReply{kind: kind, null: true}, nil
	default:
		return respReply{}, fmt.Errorf("unexpected RESP prefix %q", kind)
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func applyValkeyDefaults(cfg *ValkeyConfig) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
}

func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
