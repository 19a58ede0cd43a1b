package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
)

// Message Actor 消息接口
// 所有 Actor 间传递的消息都必须实现此接口
// 需要跨系统发送的消息还应实现 serial.Serialisable
type Message interface {
	// Kind 返回消息类型标识，用于路由和监控
	Kind() string
}

// PID (Process ID) Actor 进程标识符
// 本地 Actor 由 System 在注册时分配，远程 Actor 由路径构造
type PID struct {
	// ID 本地注册名（命名路径的完整名称），远程 Actor 为空
	ID string
	// Path Actor 的可寻址路径，本地 Actor 为命名路径
	Path address.ActorPath
	// Unique 本地 Actor 实例的唯一路径，远程 Actor 为 nil
	Unique *address.UniquePath
	// system 所属的 Actor 系统（内部使用）
	system *System
}

// String 返回 PID 的字符串表示
func (p *PID) String() string {
	if p.Path != nil {
		return p.Path.String()
	}
	return p.ID
}

// IsLocal 目标是否位于所属系统
func (p *PID) IsLocal() bool {
	return p.system != nil && p.Path != nil && p.Path.System().Equal(p.system.path)
}

// Tell 发送消息（fire-and-forget）
func (p *PID) Tell(msg Message) {
	if p.system != nil {
		p.system.Send(p, msg)
	}
}

// TrySend 尝试发送消息（非阻塞）
// 如果邮箱已满，返回 false
func (p *PID) TrySend(msg Message) bool {
	if p.system == nil {
		return false
	}
	return p.system.TrySend(p, msg)
}

// Request 发送请求并等待响应（同步调用，仅限本地 Actor）
func (p *PID) Request(msg Message, timeout time.Duration) (Message, error) {
	if p.system == nil {
		return nil, fmt.Errorf("actor system not available")
	}
	return p.system.Request(p, msg, timeout)
}

// Actor Actor 接口
// 实现此接口即可成为 Actor
type Actor interface {
	// Receive 处理接收到的消息
	// ctx 提供 Actor 上下文，msg 为接收到的消息
	Receive(ctx *Context, msg Message)
}

// ActorFunc 函数式 Actor，便于快速创建简单 Actor
type ActorFunc func(ctx *Context, msg Message)

// Receive 实现 Actor 接口
func (f ActorFunc) Receive(ctx *Context, msg Message) {
	f(ctx, msg)
}

// BaseActor 基础 Actor 实现
// 提供默认的空实现，方便嵌入
type BaseActor struct{}

// Receive 默认实现，不处理任何消息
func (b *BaseActor) Receive(_ *Context, _ Message) {}

// Remote 系统与网络层之间的桥接
// 由 remote.Node 实现并通过 System.SetRemote 安装
type Remote interface {
	// Tell 将消息发往其他系统中的 Actor
	Tell(ctx context.Context, src, dst address.ActorPath, msg Message) error
	// Decode 按 ser_id 将已编码的信封还原为消息
	Decode(env envelope.ReceiveEnvelope) (Message, error)
}

var (
	// ErrActorNotFound 目的路径在本系统中没有对应的 Actor
	ErrActorNotFound = errors.New("actor: not found")
	// ErrNotMessage 信封中的值不是 Message
	ErrNotMessage = errors.New("actor: value is not a message")
	// ErrNoRemote 系统未安装 Remote
	ErrNoRemote = errors.New("actor: no remote installed")
	// ErrNotRunning 系统已停止
	ErrNotRunning = errors.New("actor: system is not running")
)

// Context Actor 执行上下文
// 提供 Actor 执行时所需的环境信息和操作方法
type Context struct {
	// Self 当前 Actor 的 PID
	Self *PID
	// Sender 消息发送者的 PID（如果有），远程发送者的 IsLocal 为 false
	Sender *PID
	// Parent 父 Actor 的 PID（如果有）
	Parent *PID
	// Children 子 Actor 列表
	Children []*PID

	// 内部引用
	system       *System
	ctx          context.Context
	message      Message
	responseChan chan Message    // 用于 Request/Response 模式
	requestCtx   context.Context // 请求的 context，用于检查是否已取消
}

// Reply 回复消息给发送者
// 如果是 Request/Response 模式，通过 channel 返回响应
// 否则发往 Sender，远程 Sender 经由 Remote 发送
func (c *Context) Reply(msg Message) {
	if c.responseChan != nil {
		select {
		case c.responseChan <- msg:
		case <-c.requestCtx.Done():
		default:
		}
		return
	}
	if c.Sender != nil {
		c.system.SendWithSender(c.Sender, msg, c.Self)
	}
}

// Forward 转发当前消息到另一个 Actor，保留原发送者
func (c *Context) Forward(target *PID) {
	if c.message != nil {
		c.system.SendWithSender(target, c.message, c.Sender)
	}
}

// Spawn 创建子 Actor，路径为 "<父名称>/<name>"
func (c *Context) Spawn(actor Actor, name string) *PID {
	pid := c.system.spawn(actor, name, c.Self)
	if pid != nil {
		c.Children = append(c.Children, pid)
	}
	return pid
}

// Stop 停止指定 Actor
func (c *Context) Stop(pid *PID) {
	c.system.Stop(pid)
}

// StopSelf 停止当前 Actor
func (c *Context) StopSelf() {
	c.system.Stop(c.Self)
}

// Context 获取 Go context
func (c *Context) Context() context.Context {
	return c.ctx
}

// Message 获取当前正在处理的消息
func (c *Context) Message() Message {
	return c.message
}

// System 获取 Actor 系统引用
func (c *Context) System() *System {
	return c.system
}

// Watch 监控另一个本地 Actor
// 当被监控的 Actor 终止时，会收到 Terminated 消息
func (c *Context) Watch(pid *PID) {
	c.system.Send(pid, &Watch{Watcher: c.Self})
}

// Unwatch 取消监控
func (c *Context) Unwatch(pid *PID) {
	c.system.Send(pid, &Unwatch{Watcher: c.Self})
}

// Props Actor 属性配置
type Props struct {
	// Name Actor 名称，可包含 "/" 分隔的多段
	Name string
	// MailboxSize 邮箱大小
	MailboxSize int
}

// DefaultProps 默认属性
func DefaultProps(name string) *Props {
	return &Props{
		Name:        name,
		MailboxSize: 100,
	}
}

// WithMailboxSize 设置邮箱大小
func (p *Props) WithMailboxSize(size int) *Props {
	p.MailboxSize = size
	return p
}

// ============== 系统消息 ==============

// Started Actor 启动完成消息
type Started struct{}

// Kind 实现 Message 接口
func (s *Started) Kind() string { return "system.started" }

// Stopping Actor 正在停止消息
type Stopping struct{}

// Kind 实现 Message 接口
func (s *Stopping) Kind() string { return "system.stopping" }

// Stopped Actor 已停止消息
type Stopped struct{}

// Kind 实现 Message 接口
func (s *Stopped) Kind() string { return "system.stopped" }

// PoisonPill 毒丸消息，优雅停止 Actor
type PoisonPill struct{}

// Kind 实现 Message 接口
func (p *PoisonPill) Kind() string { return "system.poison_pill" }

// Watch 监控请求
type Watch struct {
	Watcher *PID
}

// Kind 实现 Message 接口
func (w *Watch) Kind() string { return "system.watch" }

// Unwatch 取消监控
type Unwatch struct {
	Watcher *PID
}

// Kind 实现 Message 接口
func (u *Unwatch) Kind() string { return "system.unwatch" }

// Terminated Actor 终止通知
type Terminated struct {
	Who *PID
}

// Kind 实现 Message 接口
func (t *Terminated) Kind() string { return "system.terminated" }

// ============== 请求/响应支持 ==============

// ResponseTimeout 响应超时错误
type ResponseTimeout struct {
	Target  *PID
	Timeout time.Duration
}

// Kind 实现 Message 接口
func (r *ResponseTimeout) Kind() string { return "system.response_timeout" }

// Error 实现 error 接口
func (r *ResponseTimeout) Error() string {
	return fmt.Sprintf("request to %s timed out after %v", r.Target, r.Timeout)
}
