// Package remote 将 Actor 系统接入网络
//
// [Node] 把一个 [actor.System] 与一个 [transport.Transport] 绑定：
//   - 出站：目的路径属于其他系统时用 envelope.SerialiseMsg 编码成帧并发送，
//     属于本系统时经 envelope.Localise 直接投递
//   - 入站：envelope.DeserialiseMsg 解析帧，[Registry] 按 ser_id 解码负载，
//     最后由 actor.System.Deliver 投递
//
// 一帧只有在源、目的与 ser_id 全部解析成功后才会被分发，
// 无法解析或无法投递的帧只记录并丢弃，不影响连接上的后续帧。
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/actor"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/transport"
)

var (
	// ErrNotSerialisable 消息没有实现 serial.Serialisable
	ErrNotSerialisable = errors.New("remote: message is not serialisable")
	// ErrAddrMismatch 传输绑定的地址与系统路径不一致
	ErrAddrMismatch = errors.New("remote: transport address does not match system path")
)

// Config 节点配置
type Config struct {
	// Registry ser_id 注册表，nil 时创建空表
	Registry *Registry
	// Logger 自定义日志器
	Logger *slog.Logger
}

// Node 系统在网络上的端点
type Node struct {
	system    *actor.System
	transport transport.Transport
	registry  *Registry
	stats     *statsCollector
	logger    *slog.Logger
}

// NewNode 创建节点并将其安装为 sys 的 Remote
func NewNode(sys *actor.System, tr transport.Transport, cfg *Config) *Node {
	if cfg == nil {
		cfg = &Config{}
	}
	reg := cfg.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := &Node{
		system:    sys,
		transport: tr,
		registry:  reg,
		stats:     newStatsCollector(),
		logger:    logger.With("node", sys.Path().String()),
	}
	sys.SetRemote(n)
	return n
}

// Start 启动传输并开始接收
// 传输实际绑定的地址必须与系统路径一致，否则路径无法被对端回连
// 启动失败时节点从系统卸载
func (n *Node) Start(ctx context.Context) error {
	if err := n.transport.Start(ctx, n.handleFrame); err != nil {
		n.system.SetRemote(nil)
		return err
	}
	if got := n.transport.Addr(); !got.Equal(n.system.Path()) {
		_ = n.transport.Close()
		n.system.SetRemote(nil)
		return fmt.Errorf("%w: bound %s, system %s", ErrAddrMismatch, got, n.system.Path())
	}
	n.logger.Info("remote node started", "registered", n.registry.Len())
	return nil
}

// Close 停止传输并从系统卸载
func (n *Node) Close() error {
	n.system.SetRemote(nil)
	return n.transport.Close()
}

// Registry 返回 ser_id 注册表
func (n *Node) Registry() *Registry {
	return n.registry
}

// System 返回绑定的 Actor 系统
func (n *Node) System() *actor.System {
	return n.system
}

// Stats 返回统计快照
func (n *Node) Stats() *Stats {
	return n.stats.snapshot()
}

// Tell 实现 actor.Remote
// 目的在本系统时不经网络，否则编码成帧发往目的系统
func (n *Node) Tell(ctx context.Context, src, dst address.ActorPath, msg actor.Message) error {
	s, ok := msg.(serial.Serialisable)
	if !ok {
		err := fmt.Errorf("%w: %s (%T)", ErrNotSerialisable, msg.Kind(), msg)
		n.stats.recordError(&n.stats.encodeErrors, err)
		return err
	}

	if dst.System().Equal(n.system.Path()) {
		env, err := envelope.Localise(src, dst, s)
		if err != nil {
			n.stats.recordError(&n.stats.encodeErrors, err)
			return err
		}
		if err := n.system.Deliver(env); err != nil {
			n.stats.recordError(&n.stats.undeliverable, err)
			return err
		}
		n.stats.localDeliveries.Add(1)
		return nil
	}

	frame, err := envelope.SerialiseMsg(src, dst, s)
	if err != nil {
		n.stats.recordError(&n.stats.encodeErrors, err)
		return err
	}
	if err := n.transport.Send(ctx, dst.System(), frame); err != nil {
		n.stats.recordError(&n.stats.sendErrors, err)
		return err
	}
	n.stats.recordOut(frame.Len())
	return nil
}

// Decode 实现 actor.Remote
func (n *Node) Decode(env envelope.ReceiveEnvelope) (actor.Message, error) {
	return n.registry.Decode(env)
}

// handleFrame 处理一帧入站数据
func (n *Node) handleFrame(frame serial.Bytes) {
	n.stats.recordIn(frame.Len())

	env, err := envelope.DeserialiseMsg(frame)
	if err != nil {
		n.stats.recordError(&n.stats.decodeErrors, err)
		n.logger.Warn("dropping malformed frame", "size", frame.Len(), "error", err)
		return
	}

	if !env.Dst.System().Equal(n.system.Path()) {
		err := fmt.Errorf("destination %s is not on this system", env.Dst)
		n.stats.recordError(&n.stats.undeliverable, err)
		n.logger.Warn("dropping misrouted frame", "src", env.Src.String(), "dst", env.Dst.String())
		return
	}

	if err := n.system.Deliver(env); err != nil {
		switch {
		case errors.Is(err, ErrUnknownSerID):
			n.stats.recordError(&n.stats.unknownSerIDs, err)
		case errors.Is(err, actor.ErrActorNotFound):
			n.stats.recordError(&n.stats.undeliverable, err)
		default:
			n.stats.recordError(&n.stats.decodeErrors, err)
		}
		n.logger.Warn("inbound delivery failed",
			"src", env.Src.String(), "dst", env.Dst.String(), "ser_id", env.SerID, "error", err)
	}
}
