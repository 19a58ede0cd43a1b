package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// TCP 长度前缀分帧的 TCP 传输
// 出站连接按目标地址缓存复用；入站连接各自一个读循环
type TCP struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	addr    address.SystemPath
	ln      net.Listener
	handler Handler
	conns   map[string]*tcpConn
	inbound map[net.Conn]struct{}
	closed  bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

var noDeadline time.Time

// tcpConn 出站连接，写入串行化
type tcpConn struct {
	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// NewTCP 创建监听在 addr 的 TCP 传输，端口为 0 时由系统分配
func NewTCP(addr address.SystemPath, opts Options) *TCP {
	opts = opts.withDefaults()
	addr.Protocol = address.ProtocolTCP
	return &TCP{
		opts:    opts,
		logger:  opts.Logger,
		addr:    addr,
		conns:   make(map[string]*tcpConn),
		inbound: make(map[net.Conn]struct{}),
	}
}

// Start 实现 Transport
func (t *TCP) Start(ctx context.Context, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.ln != nil {
		return fmt.Errorf("transport already started: %s", t.addr)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.addr.HostPort())
	if err != nil {
		return err
	}
	if ap, err := netip.ParseAddrPort(ln.Addr().String()); err == nil {
		t.addr.Port = ap.Port()
	}
	t.ln = ln
	t.handler = handler

	t.wg.Add(1)
	go t.acceptLoop(ln)

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			_ = t.Close()
		}()
	}

	t.logger.Info("tcp transport listening", "addr", t.addr.String())
	return nil
}

func (t *TCP) acceptLoop(ln net.Listener) {
	defer t.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				t.logger.Warn("tcp accept failed", "error", err)
			}
			return
		}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.inbound[conn] = struct{}{}
		t.mu.Unlock()

		t.wg.Add(1)
		go t.readLoop(conn)
	}
}

func (t *TCP) readLoop(conn net.Conn) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.inbound, conn)
		t.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		frame, err := ReadFrame(r, t.opts.MaxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				t.logger.Warn("tcp read failed, closing connection",
					"remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()
		if handler != nil {
			handler(frame)
		}
	}
}

// Send 实现 Transport
func (t *TCP) Send(ctx context.Context, to address.SystemPath, frame serial.Bytes) error {
	if to.Protocol != address.ProtocolTCP {
		return fmt.Errorf("%w: %s", ErrProtocolMismatch, to)
	}
	c, err := t.conn(ctx, to)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(noDeadline) }()
	}
	err = WriteFrame(c.w, frame, t.opts.MaxFrameSize)
	if err == nil {
		err = c.w.Flush()
	}
	if err != nil {
		var tooLarge *FrameTooLargeError
		if !errors.As(err, &tooLarge) {
			t.drop(to.HostPort(), c)
		}
		return err
	}
	return nil
}

// conn 获取或建立到目标的出站连接
func (t *TCP) conn(ctx context.Context, to address.SystemPath) (*tcpConn, error) {
	key := to.HostPort()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	if c, ok := t.conns[key]; ok {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	d := net.Dialer{Timeout: t.opts.DialTimeout}
	raw, err := d.DialContext(ctx, "tcp", key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, to, err)
	}
	c := &tcpConn{conn: raw, w: bufio.NewWriter(raw)}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		_ = raw.Close()
		return nil, ErrClosed
	}
	if existing, ok := t.conns[key]; ok {
		// 并发建连，保留先到的连接
		_ = raw.Close()
		return existing, nil
	}
	t.conns[key] = c
	t.logger.Debug("tcp connection established", "to", to.String())
	return c, nil
}

func (t *TCP) drop(key string, c *tcpConn) {
	t.mu.Lock()
	if t.conns[key] == c {
		delete(t.conns, key)
	}
	t.mu.Unlock()
	_ = c.conn.Close()
}

// Addr 实现 Transport
func (t *TCP) Addr() address.SystemPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr
}

// Close 实现 Transport
func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		if t.ln != nil {
			_ = t.ln.Close()
		}
		for key, c := range t.conns {
			_ = c.conn.Close()
			delete(t.conns, key)
		}
		for conn := range t.inbound {
			_ = conn.Close()
		}
		t.mu.Unlock()

		t.wg.Wait()
		t.logger.Info("tcp transport closed", "addr", t.addr.String())
	})
	return nil
}
