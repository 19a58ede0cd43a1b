// Package transport 提供在系统之间搬运帧的传输层
//
// 线路编码（pkg/envelope）要求每次交付恰好一帧，本包的实现各自保证这一点：
//   - [InMemory] 进程内直接交付冻结后的字节，不复制
//   - [TCP] 每帧前加 4 字节大端序长度
//   - [WebSocket] 每帧对应一条二进制消息
//
// 传输层不提供投递保证，也不做重试。
package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// Handler 每收到一帧调用一次
// 不同连接上的帧可能并发调用 Handler，实现不应阻塞
type Handler func(frame serial.Bytes)

// Transport 双向帧传输
type Transport interface {
	// Start 开始接收，之后收到的每一帧都交给 handler
	Start(ctx context.Context, handler Handler) error
	// Send 向目标系统发送一帧
	Send(ctx context.Context, to address.SystemPath, frame serial.Bytes) error
	// Addr 返回本端实际绑定的系统路径
	Addr() address.SystemPath
	// Close 停止接收并释放连接，可重复调用
	Close() error
}

var (
	// ErrClosed 传输已关闭
	ErrClosed = errors.New("transport: closed")
	// ErrNotStarted 传输尚未启动
	ErrNotStarted = errors.New("transport: not started")
	// ErrUnreachable 目标系统不可达
	ErrUnreachable = errors.New("transport: destination unreachable")
	// ErrProtocolMismatch 目标系统路径的协议与传输不符
	ErrProtocolMismatch = errors.New("transport: protocol mismatch")
)

// DefaultMaxFrameSize 默认最大帧长度
const DefaultMaxFrameSize = 16 << 20

// Options 网络传输的公共选项
type Options struct {
	// MaxFrameSize 单帧最大字节数，<=0 使用默认值
	MaxFrameSize int
	// DialTimeout 建连超时
	DialTimeout time.Duration
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		MaxFrameSize: DefaultMaxFrameSize,
		DialTimeout:  5 * time.Second,
		Logger:       nil, // 使用默认 logger
	}
}

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = DefaultMaxFrameSize
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
