package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// WebSocketPath 服务端挂载的 HTTP 路径
const WebSocketPath = "/wire"

// WebSocket 基于 WebSocket 的传输，每帧一条二进制消息
type WebSocket struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	addr    address.SystemPath
	srv     *http.Server
	handler Handler
	conns   map[string]*wsConn
	inbound map[*websocket.Conn]struct{}
	closed  bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// NewWebSocket 创建监听在 addr 的 WebSocket 传输
func NewWebSocket(addr address.SystemPath, opts Options) *WebSocket {
	opts = opts.withDefaults()
	addr.Protocol = address.ProtocolWS
	return &WebSocket{
		opts:    opts,
		logger:  opts.Logger,
		addr:    addr,
		conns:   make(map[string]*wsConn),
		inbound: make(map[*websocket.Conn]struct{}),
	}
}

// Start 实现 Transport
func (t *WebSocket) Start(ctx context.Context, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.srv != nil {
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
	t.handler = handler

	mux := http.NewServeMux()
	// Handshake 为空时不校验 Origin
	mux.Handle(WebSocketPath, websocket.Server{Handler: t.serve})
	t.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Warn("websocket server stopped", "error", err)
		}
	}()

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			_ = t.Close()
		}()
	}

	t.logger.Info("websocket transport listening", "addr", t.addr.String(), "path", WebSocketPath)
	return nil
}

// serve 处理一条入站连接，直到对端关闭
func (t *WebSocket) serve(ws *websocket.Conn) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = ws.Close()
		return
	}
	t.inbound[ws] = struct{}{}
	handler := t.handler
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inbound, ws)
		t.mu.Unlock()
		_ = ws.Close()
	}()

	ws.MaxPayloadBytes = t.opts.MaxFrameSize
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				t.logger.Warn("websocket receive failed, closing connection",
					"remote", ws.Request().RemoteAddr, "error", err)
			}
			return
		}
		if handler != nil {
			handler(serial.Wrap(data))
		}
	}
}

// Send 实现 Transport
func (t *WebSocket) Send(ctx context.Context, to address.SystemPath, frame serial.Bytes) error {
	if to.Protocol != address.ProtocolWS {
		return fmt.Errorf("%w: %s", ErrProtocolMismatch, to)
	}
	if frame.Len() > t.opts.MaxFrameSize {
		return &FrameTooLargeError{Size: frame.Len(), Max: t.opts.MaxFrameSize}
	}
	c, err := t.conn(ctx, to)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
		defer func() { _ = c.ws.SetWriteDeadline(noDeadline) }()
	}
	// 一次 Write 对应一条消息
	if _, err := frame.WriteTo(c.ws); err != nil {
		t.drop(to.HostPort(), c)
		return err
	}
	return nil
}

func (t *WebSocket) conn(ctx context.Context, to address.SystemPath) (*wsConn, error) {
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
	origin := "http://" + t.addr.HostPort() + "/"
	t.mu.Unlock()

	cfg, err := websocket.NewConfig("ws://"+key+WebSocketPath, origin)
	if err != nil {
		return nil, err
	}
	cfg.Dialer = &net.Dialer{Timeout: t.opts.DialTimeout}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, to, err)
	}
	ws.PayloadType = websocket.BinaryFrame
	c := &wsConn{ws: ws}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		_ = ws.Close()
		return nil, ErrClosed
	}
	if existing, ok := t.conns[key]; ok {
		_ = ws.Close()
		return existing, nil
	}
	t.conns[key] = c
	t.logger.Debug("websocket connection established", "to", to.String())
	return c, nil
}

func (t *WebSocket) drop(key string, c *wsConn) {
	t.mu.Lock()
	if t.conns[key] == c {
		delete(t.conns, key)
	}
	t.mu.Unlock()
	_ = c.ws.Close()
}

// Addr 实现 Transport
func (t *WebSocket) Addr() address.SystemPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr
}

// Close 实现 Transport
func (t *WebSocket) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		srv := t.srv
		for key, c := range t.conns {
			_ = c.ws.Close()
			delete(t.conns, key)
		}
		for ws := range t.inbound {
			_ = ws.Close()
		}
		t.mu.Unlock()

		if srv != nil {
			_ = srv.Close()
		}
		t.wg.Wait()
		t.logger.Info("websocket transport closed", "addr", t.addr.String())
	})
	return nil
}
