package actor

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
)

// DeadLetterName 匿名发送时使用的源路径名称
const DeadLetterName = "deadLetters"

// System Actor 系统
// 管理所有 Actor 的生命周期、路径分配和消息路由
type System struct {
	// 基本信息
	name string
	path address.SystemPath

	// Actor 注册表：按完整名称与唯一标识两路索引
	actors   map[string]*actorCell
	byUnique map[uuid.UUID]*actorCell
	actorsMu sync.RWMutex

	// 全局邮箱（用于路由消息）
	mailbox chan mail

	// 死信队列（无法投递的消息）
	deadLetters    chan mail
	deadLetterPath *address.NamedPath

	// 跨系统发送
	remote   Remote
	remoteMu sync.RWMutex

	// 生命周期控制
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning atomic.Bool

	config *SystemConfig
	stats  *SystemStats
	logger *slog.Logger
}

// SystemConfig 系统配置
type SystemConfig struct {
	// SystemPath 本系统的网络端点，决定所有本地 Actor 路径的系统部分
	SystemPath address.SystemPath
	// MailboxSize 全局邮箱大小
	MailboxSize int
	// DeadLetterSize 死信队列大小
	DeadLetterSize int
	// DefaultActorMailboxSize 默认 Actor 邮箱大小
	DefaultActorMailboxSize int
	// EnableDeadLetterLogging 是否记录死信
	EnableDeadLetterLogging bool
	// RemoteTimeout 单次跨系统发送的超时
	RemoteTimeout time.Duration
	// PanicHandler panic 处理函数
	PanicHandler func(actor *PID, msg Message, err any)
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultSystemConfig 默认系统配置
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		SystemPath:              address.NewSystemPath(address.ProtocolLocal, address.IPHost(netip.MustParseAddr("127.0.0.1")), 0),
		MailboxSize:             10000,
		DeadLetterSize:          1000,
		DefaultActorMailboxSize: 100,
		EnableDeadLetterLogging: true,
		RemoteTimeout:           5 * time.Second,
		PanicHandler:            nil, // 使用默认处理
		Logger:                  nil, // 使用默认 logger
	}
}

// SystemStats 系统统计
type SystemStats struct {
	TotalActors    int64
	TotalMessages  int64
	DeadLetters    int64
	ProcessedMsgs  int64
	RemoteMessages int64
	Panics         int64
	StartTime      time.Time
}

// actorCell Actor 单元，包含 Actor 及其运行时状态
type actorCell struct {
	pid      *PID
	actor    Actor
	mailbox  chan mail
	parent   *PID
	children map[string]*PID
	watchers map[string]*PID

	state   actorState
	stateMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

type actorState int

const (
	actorStateIdle actorState = iota
	actorStateRunning
	actorStateStopping
	actorStateStopped
)

// mail 系统内部的投递单元
type mail struct {
	target   *PID
	sender   *PID
	message  Message
	sentAt   time.Time
	response chan Message    // 用于 Request/Response
	ctx      context.Context // 用于取消请求
}

// NewSystem 创建新的 Actor 系统
func NewSystem(name string) *System {
	return NewSystemWithConfig(name, DefaultSystemConfig())
}

// NewSystemWithConfig 使用配置创建 Actor 系统
func NewSystemWithConfig(name string, config *SystemConfig) *System {
	if config == nil {
		config = DefaultSystemConfig()
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &System{
		name:           name,
		path:           config.SystemPath,
		actors:         make(map[string]*actorCell),
		byUnique:       make(map[uuid.UUID]*actorCell),
		mailbox:        make(chan mail, config.MailboxSize),
		deadLetters:    make(chan mail, config.DeadLetterSize),
		deadLetterPath: address.MustNamedPath(config.SystemPath, DeadLetterName),
		ctx:            ctx,
		cancel:         cancel,
		config:         config,
		logger:         logger,
		stats: &SystemStats{
			StartTime: time.Now(),
		},
	}

	s.isRunning.Store(true)

	s.wg.Add(1)
	go s.dispatcher()

	if config.EnableDeadLetterLogging {
		s.wg.Add(1)
		go s.deadLetterHandler()
	}

	s.logger.Info("actor system started", "name", name, "path", s.path.String())
	return s
}

// Name 返回系统名称
func (s *System) Name() string {
	return s.name
}

// Path 返回系统路径
func (s *System) Path() address.SystemPath {
	return s.path
}

// SetRemote 安装跨系统发送桥接，传 nil 卸载
func (s *System) SetRemote(r Remote) {
	s.remoteMu.Lock()
	s.remote = r
	s.remoteMu.Unlock()
}

func (s *System) getRemote() Remote {
	s.remoteMu.RLock()
	defer s.remoteMu.RUnlock()
	return s.remote
}

// Spawn 创建 Actor
// name 可以是 "svc/worker" 形式的多段名称；名称非法时返回 nil
func (s *System) Spawn(actor Actor, name string) *PID {
	return s.spawn(actor, name, nil)
}

// SpawnWithProps 使用属性创建 Actor
func (s *System) SpawnWithProps(actor Actor, props *Props) *PID {
	return s.spawnWithProps(actor, props, nil)
}

func (s *System) spawn(actor Actor, name string, parent *PID) *PID {
	return s.spawnWithProps(actor, DefaultProps(name), parent)
}

func (s *System) spawnWithProps(actor Actor, props *Props, parent *PID) *PID {
	fullName := props.Name
	if parent != nil {
		fullName = parent.ID + address.NameSeparator + props.Name
	}
	segments, err := address.SplitName(fullName)
	if err != nil {
		s.logger.Error("invalid actor name", "name", fullName, "error", err)
		return nil
	}
	path, err := address.NewNamedPath(s.path, segments...)
	if err != nil {
		s.logger.Error("invalid actor name", "name", fullName, "error", err)
		return nil
	}
	fullName = path.Name()

	s.actorsMu.Lock()
	defer s.actorsMu.Unlock()

	if cell, exists := s.actors[fullName]; exists {
		s.logger.Warn("actor already exists, returning existing PID", "name", fullName)
		return cell.pid
	}

	pid := &PID{
		ID:     fullName,
		Path:   path,
		Unique: address.NewUniquePath(s.path, uuid.New()),
		system: s,
	}

	ctx, cancel := context.WithCancel(s.ctx)

	mailboxSize := props.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = s.config.DefaultActorMailboxSize
	}

	cell := &actorCell{
		pid:      pid,
		actor:    actor,
		mailbox:  make(chan mail, mailboxSize),
		parent:   parent,
		children: make(map[string]*PID),
		watchers: make(map[string]*PID),
		state:    actorStateIdle,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.actors[fullName] = cell
	s.byUnique[pid.Unique.ID()] = cell
	atomic.AddInt64(&s.stats.TotalActors, 1)

	if parent != nil {
		if parentCell, ok := s.actors[parent.ID]; ok {
			parentCell.children[fullName] = pid
		}
	}

	s.wg.Add(1)
	go s.actorLoop(cell)

	s.SendWithSender(pid, &Started{}, nil)

	s.logger.Debug("spawned actor", "path", path.String(), "unique", pid.Unique.String())
	return pid
}

// Resolve 按路径查找本地 Actor
// 命名路径按完整名称匹配，唯一路径按 UUID 匹配；其他系统的路径返回 false
func (s *System) Resolve(path address.ActorPath) (*PID, bool) {
	if path == nil || !path.System().Equal(s.path) {
		return nil, false
	}

	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	var cell *actorCell
	switch p := path.(type) {
	case *address.NamedPath:
		cell = s.actors[p.Name()]
	case *address.UniquePath:
		cell = s.byUnique[p.ID()]
	}
	if cell == nil {
		return nil, false
	}
	return cell.pid, true
}

// PIDOf 返回指向 path 的 PID
// 本地已注册的 Actor 返回其 PID，其他路径返回可发送但不可 Request 的引用
func (s *System) PIDOf(path address.ActorPath) *PID {
	if path == nil {
		return nil
	}
	if pid, ok := s.Resolve(path); ok {
		return pid
	}
	return &PID{Path: path, system: s}
}

// isLocal 目标是否属于本系统
func (s *System) isLocal(target *PID) bool {
	return target.Path == nil || target.Path.System().Equal(s.path)
}

// Send 发送消息（无发送者）
func (s *System) Send(target *PID, msg Message) {
	s.SendWithSender(target, msg, nil)
}

// SendWithSender 发送消息（带发送者）
// 目标位于其他系统时经由 Remote 发送
func (s *System) SendWithSender(target *PID, msg Message, sender *PID) {
	if !s.isRunning.Load() || target == nil {
		return
	}
	if !s.isLocal(target) {
		s.sendRemote(target, msg, sender)
		return
	}

	m := mail{
		target:  target,
		sender:  sender,
		message: msg,
		sentAt:  time.Now(),
	}

	select {
	case s.mailbox <- m:
		atomic.AddInt64(&s.stats.TotalMessages, 1)
	default:
		s.deadLetter(m, "mailbox full")
	}
}

// sendRemote 同步交给 Remote，失败计入死信
func (s *System) sendRemote(target *PID, msg Message, sender *PID) bool {
	m := mail{target: target, sender: sender, message: msg, sentAt: time.Now()}

	r := s.getRemote()
	if r == nil {
		s.deadLetter(m, ErrNoRemote.Error())
		return false
	}

	var src address.ActorPath = s.deadLetterPath
	if sender != nil && sender.Path != nil {
		src = sender.Path
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.RemoteTimeout)
	defer cancel()
	if err := r.Tell(ctx, src, target.Path, msg); err != nil {
		s.logger.Warn("remote send failed",
			"kind", msg.Kind(), "target", target.String(), "error", err)
		s.deadLetter(m, err.Error())
		return false
	}
	atomic.AddInt64(&s.stats.RemoteMessages, 1)
	return true
}

// TrySend 尝试发送消息（非阻塞）
// 如果邮箱已满，返回 false；远程目标总是同步发送
func (s *System) TrySend(target *PID, msg Message) bool {
	if !s.isRunning.Load() || target == nil {
		return false
	}
	if !s.isLocal(target) {
		return s.sendRemote(target, msg, nil)
	}

	m := mail{
		target:  target,
		message: msg,
		sentAt:  time.Now(),
	}

	select {
	case s.mailbox <- m:
		atomic.AddInt64(&s.stats.TotalMessages, 1)
		return true
	default:
		return false
	}
}

// Deliver 将信封投递给本地目的 Actor
//
// LocalEnvelope 的值必须实现 Message；ReceiveEnvelope 经由 Remote 按 ser_id 解码。
// 源路径解析为 Context.Sender，回复会沿原路返回。
func (s *System) Deliver(env envelope.Envelope) error {
	if !s.isRunning.Load() {
		return ErrNotRunning
	}

	var msg Message
	switch e := env.(type) {
	case envelope.LocalEnvelope:
		m, ok := e.Value.(Message)
		if !ok {
			return fmt.Errorf("%w: %T", ErrNotMessage, e.Value)
		}
		msg = m
	case envelope.ReceiveEnvelope:
		r := s.getRemote()
		if r == nil {
			return ErrNoRemote
		}
		m, err := r.Decode(e)
		if err != nil {
			return err
		}
		msg = m
	default:
		return fmt.Errorf("actor: unsupported envelope %T", env)
	}

	target, ok := s.Resolve(env.Destination())
	if !ok {
		s.deadLetter(mail{
			target:  &PID{Path: env.Destination(), system: s},
			sender:  s.PIDOf(env.Source()),
			message: msg,
			sentAt:  time.Now(),
		}, "no such actor")
		return fmt.Errorf("%w: %s", ErrActorNotFound, env.Destination())
	}

	s.SendWithSender(target, msg, s.PIDOf(env.Source()))
	return nil
}

// Request 同步请求（等待响应），仅限本地 Actor
func (s *System) Request(target *PID, msg Message, timeout time.Duration) (Message, error) {
	if !s.isRunning.Load() {
		return nil, ErrNotRunning
	}
	if !s.isLocal(target) {
		return nil, fmt.Errorf("actor: request to remote actor %s is not supported", target)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	responseChan := make(chan Message, 1)
	m := mail{
		target:   target,
		message:  msg,
		sentAt:   time.Now(),
		response: responseChan,
		ctx:      ctx,
	}

	select {
	case s.mailbox <- m:
		atomic.AddInt64(&s.stats.TotalMessages, 1)
	case <-ctx.Done():
		return nil, &ResponseTimeout{Target: target, Timeout: timeout}
	}

	select {
	case resp := <-responseChan:
		return resp, nil
	case <-ctx.Done():
		return nil, &ResponseTimeout{Target: target, Timeout: timeout}
	}
}

// Stop 停止本地 Actor
func (s *System) Stop(pid *PID) {
	if pid == nil || !s.isLocal(pid) {
		return
	}
	s.actorsMu.RLock()
	cell, exists := s.actors[pid.ID]
	s.actorsMu.RUnlock()

	if !exists {
		return
	}

	s.Send(pid, &PoisonPill{})

	cell.stateMu.Lock()
	if cell.state != actorStateStopped {
		cell.state = actorStateStopping
	}
	cell.stateMu.Unlock()
}

// StopGracefully 停止 Actor 并等待其消息循环退出
func (s *System) StopGracefully(pid *PID, timeout time.Duration) error {
	s.Stop(pid)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.actorsMu.RLock()
		_, exists := s.actors[pid.ID]
		s.actorsMu.RUnlock()

		if !exists {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for actor %s to stop", pid)
}

// Shutdown 关闭整个 Actor 系统
func (s *System) Shutdown() {
	s.ShutdownWithTimeout(30 * time.Second)
}

// ShutdownWithTimeout 带超时的关闭
func (s *System) ShutdownWithTimeout(timeout time.Duration) {
	if !s.isRunning.CompareAndSwap(true, false) {
		return
	}
	s.logger.Info("actor system shutting down", "name", s.name)

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("actor system shutdown complete", "name", s.name)
	case <-time.After(timeout):
		s.logger.Warn("actor system shutdown timeout, forcing exit", "name", s.name)
	}
}

// dispatcher 全局消息分发器
func (s *System) dispatcher() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.mailbox:
			s.dispatchMessage(m)
		}
	}
}

// dispatchMessage 分发单条消息
func (s *System) dispatchMessage(m mail) {
	s.actorsMu.RLock()
	cell, exists := s.actors[m.target.ID]
	s.actorsMu.RUnlock()

	if !exists {
		s.deadLetter(m, "no such actor")
		return
	}

	select {
	case cell.mailbox <- m:
	default:
		s.deadLetter(m, "actor mailbox full")
	}
}

// deadLetter 非阻塞地投入死信队列
func (s *System) deadLetter(m mail, reason string) {
	atomic.AddInt64(&s.stats.DeadLetters, 1)
	select {
	case s.deadLetters <- m:
	default:
		s.logger.Warn("dead letter queue full, message dropped",
			"kind", m.message.Kind(), "target", m.target.String(), "reason", reason)
	}
}

// actorLoop Actor 消息处理循环
func (s *System) actorLoop(cell *actorCell) {
	defer s.wg.Done()
	defer s.cleanupActor(cell)

	cell.stateMu.Lock()
	cell.state = actorStateRunning
	cell.stateMu.Unlock()

	for {
		select {
		case <-cell.ctx.Done():
			return
		case m := <-cell.mailbox:
			s.processMessage(cell, m)

			if _, ok := m.message.(*PoisonPill); ok {
				return
			}
		}
	}
}

// processMessage 处理单条消息，panic 后 Actor 继续处理下一条
func (s *System) processMessage(cell *actorCell, m mail) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&s.stats.Panics, 1)
			if s.config.PanicHandler != nil {
				s.config.PanicHandler(cell.pid, m.message, r)
				return
			}
			s.logger.Error("panic in actor",
				"actor", cell.pid.String(),
				"message", m.message.Kind(),
				"error", r,
				"stack", string(debug.Stack()))
		}
	}()

	ctx := &Context{
		Self:     cell.pid,
		Sender:   m.sender,
		Parent:   cell.parent,
		Children: s.getChildrenPIDs(cell),
		system:   s,
		ctx:      cell.ctx,
		message:  m.message,
	}

	if m.response != nil {
		ctx.responseChan = m.response
		ctx.requestCtx = m.ctx
	}

	switch msg := m.message.(type) {
	case *PoisonPill:
		cell.actor.Receive(ctx, &Stopping{})
		return

	case *Watch:
		cell.watchers[msg.Watcher.ID] = msg.Watcher
		return

	case *Unwatch:
		delete(cell.watchers, msg.Watcher.ID)
		return
	}

	cell.actor.Receive(ctx, m.message)
	atomic.AddInt64(&s.stats.ProcessedMsgs, 1)
}

// cleanupActor 清理 Actor
func (s *System) cleanupActor(cell *actorCell) {
	cell.stateMu.Lock()
	cell.state = actorStateStopped
	cell.stateMu.Unlock()

	ctx := &Context{Self: cell.pid, system: s, ctx: context.Background()}
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in actor while stopping", "actor", cell.pid.String(), "error", r)
			}
		}()
		cell.actor.Receive(ctx, &Stopped{})
	}()

	for _, watcher := range cell.watchers {
		s.Send(watcher, &Terminated{Who: cell.pid})
	}

	s.actorsMu.Lock()
	children := make([]*PID, 0, len(cell.children))
	for _, child := range cell.children {
		children = append(children, child)
	}
	delete(s.actors, cell.pid.ID)
	delete(s.byUnique, cell.pid.Unique.ID())
	if cell.parent != nil {
		if parentCell, ok := s.actors[cell.parent.ID]; ok {
			delete(parentCell.children, cell.pid.ID)
		}
	}
	s.actorsMu.Unlock()

	for _, child := range children {
		s.Stop(child)
	}

	cell.cancel()

	atomic.AddInt64(&s.stats.TotalActors, -1)
	s.logger.Debug("actor stopped", "actor", cell.pid.String())
}

// getChildrenPIDs 获取子 Actor PID 列表
func (s *System) getChildrenPIDs(cell *actorCell) []*PID {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()
	pids := make([]*PID, 0, len(cell.children))
	for _, pid := range cell.children {
		pids = append(pids, pid)
	}
	return pids
}

// deadLetterHandler 死信处理器
func (s *System) deadLetterHandler() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.deadLetters:
			var sender string
			if m.sender != nil {
				sender = m.sender.String()
			}
			s.logger.Warn("dead letter",
				"message", m.message.Kind(),
				"target", m.target.String(),
				"sender", sender)
		}
	}
}

// Stats 获取统计信息
func (s *System) Stats() *SystemStats {
	return &SystemStats{
		TotalActors:    atomic.LoadInt64(&s.stats.TotalActors),
		TotalMessages:  atomic.LoadInt64(&s.stats.TotalMessages),
		DeadLetters:    atomic.LoadInt64(&s.stats.DeadLetters),
		ProcessedMsgs:  atomic.LoadInt64(&s.stats.ProcessedMsgs),
		RemoteMessages: atomic.LoadInt64(&s.stats.RemoteMessages),
		Panics:         atomic.LoadInt64(&s.stats.Panics),
		StartTime:      s.stats.StartTime,
	}
}

// GetActor 按完整名称获取 Actor
func (s *System) GetActor(name string) (*PID, bool) {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	if cell, ok := s.actors[name]; ok {
		return cell.pid, true
	}
	return nil, false
}

// ListActors 列出所有 Actor
func (s *System) ListActors() []*PID {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	pids := make([]*PID, 0, len(s.actors))
	for _, cell := range s.actors {
		pids = append(pids, cell.pid)
	}
	return pids
}

// Count 返回 Actor 数量
func (s *System) Count() int {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()
	return len(s.actors)
}

// IsRunning 检查系统是否运行中
func (s *System) IsRunning() bool {
	return s.isRunning.Load()
}
