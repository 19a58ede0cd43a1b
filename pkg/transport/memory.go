package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

var (
	memRegistryMu sync.RWMutex
	memRegistry   = map[string]*InMemory{}
)

// InMemory 进程内传输，用于测试和单进程集群
// 按系统路径在进程级表中注册，Send 同步调用目标的 Handler
type InMemory struct {
	addr address.SystemPath

	mu      sync.RWMutex
	handler Handler
	started bool
}

// NewInMemory 创建绑定到 addr 的进程内传输
func NewInMemory(addr address.SystemPath) *InMemory {
	return &InMemory{addr: addr}
}

// Start 实现 Transport
func (t *InMemory) Start(_ context.Context, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("transport already started: %s", t.addr)
	}

	memRegistryMu.Lock()
	defer memRegistryMu.Unlock()
	key := t.addr.String()
	if _, exists := memRegistry[key]; exists {
		return fmt.Errorf("address already in use: %s", key)
	}
	memRegistry[key] = t
	t.handler = handler
	t.started = true
	return nil
}

// Send 实现 Transport
func (t *InMemory) Send(ctx context.Context, to address.SystemPath, frame serial.Bytes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.RLock()
	started := t.started
	t.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	memRegistryMu.RLock()
	dst := memRegistry[to.String()]
	memRegistryMu.RUnlock()
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrUnreachable, to)
	}

	dst.mu.RLock()
	handler := dst.handler
	dst.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrUnreachable, to)
	}
	handler(frame)
	return nil
}

// Addr 实现 Transport
func (t *InMemory) Addr() address.SystemPath { return t.addr }

// Close 实现 Transport
func (t *InMemory) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil
	}
	memRegistryMu.Lock()
	delete(memRegistry, t.addr.String())
	memRegistryMu.Unlock()
	t.handler = nil
	t.started = false
	return nil
}
