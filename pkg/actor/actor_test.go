package actor

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// ============== 测试消息类型 ==============

type PingMessage struct{}

func (p *PingMessage) Kind() string { return "ping" }

type PongMessage struct{}

func (p *PongMessage) Kind() string { return "pong" }

type CountMessage struct {
	Value int
}

func (c *CountMessage) Kind() string { return "count" }

type EchoMessage struct {
	Text string
}

func (e *EchoMessage) Kind() string { return "echo" }

type PanicMessage struct{}

func (p *PanicMessage) Kind() string { return "panic" }

// ============== 测试 Actor ==============

type EchoActor struct {
	BaseActor
	received []Message
	senders  []*PID
	mu       sync.Mutex
}

func (a *EchoActor) Receive(ctx *Context, msg Message) {
	a.mu.Lock()
	a.received = append(a.received, msg)
	a.senders = append(a.senders, ctx.Sender)
	a.mu.Unlock()

	if ctx.Sender != nil {
		ctx.Reply(msg)
	}
}

func (a *EchoActor) ReceivedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.received)
}

func (a *EchoActor) LastSender() *PID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.senders) == 0 {
		return nil
	}
	return a.senders[len(a.senders)-1]
}

type CounterActor struct {
	BaseActor
	count int32
}

func (a *CounterActor) Receive(_ *Context, msg Message) {
	if _, ok := msg.(*CountMessage); ok {
		atomic.AddInt32(&a.count, 1)
	}
}

func (a *CounterActor) Count() int32 {
	return atomic.LoadInt32(&a.count)
}

type RequestResponseActor struct {
	BaseActor
}

func (a *RequestResponseActor) Receive(ctx *Context, msg Message) {
	switch m := msg.(type) {
	case *PingMessage:
		ctx.Reply(&PongMessage{})
	case *EchoMessage:
		ctx.Reply(&EchoMessage{Text: "Echo: " + m.Text})
	}
}

type PanicActor struct {
	BaseActor
	handled int32
}

func (a *PanicActor) Receive(_ *Context, msg Message) {
	switch msg.(type) {
	case *PanicMessage:
		panic("intentional panic")
	case *CountMessage:
		atomic.AddInt32(&a.handled, 1)
	}
}

// recordingRemote 记录所有跨系统发送
type recordingRemote struct {
	mu    sync.Mutex
	sent  []sentMessage
	fail  error
	codec map[uint64]func(*serial.Cursor) (Message, error)
}

type sentMessage struct {
	src, dst address.ActorPath
	msg      Message
}

func (r *recordingRemote) Tell(_ context.Context, src, dst address.ActorPath, msg Message) error {
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	r.sent = append(r.sent, sentMessage{src: src, dst: dst, msg: msg})
	r.mu.Unlock()
	return nil
}

func (r *recordingRemote) Decode(env envelope.ReceiveEnvelope) (Message, error) {
	dec, ok := r.codec[env.SerID]
	if !ok {
		return nil, errors.New("unknown ser_id")
	}
	return dec(env.Payload())
}

func (r *recordingRemote) Sent() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

var (
	localSystem  = address.TCPSystem(netip.MustParseAddr("127.0.0.1"), 7001)
	remoteSystem = address.TCPSystem(netip.MustParseAddr("127.0.0.1"), 7002)
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	cfg := DefaultSystemConfig()
	cfg.SystemPath = localSystem
	sys := NewSystemWithConfig("test", cfg)
	t.Cleanup(sys.Shutdown)
	return sys
}

// ============== 生命周期 ==============

func TestNewSystem(t *testing.T) {
	sys := NewSystem("test")
	require.NotNil(t, sys)
	assert.Equal(t, "test", sys.Name())
	assert.Equal(t, address.ProtocolLocal, sys.Path().Protocol)
	assert.True(t, sys.IsRunning())

	sys.Shutdown()
	assert.False(t, sys.IsRunning())

	// 重复关闭无副作用
	sys.Shutdown()
}

func TestSpawnAssignsPaths(t *testing.T) {
	sys := newTestSystem(t)

	actor := &EchoActor{}
	pid := sys.Spawn(actor, "svc/worker")
	require.NotNil(t, pid)

	assert.Equal(t, "svc/worker", pid.ID)
	assert.Equal(t, "tcp://127.0.0.1:7001/svc/worker", pid.String())
	assert.Equal(t, address.PathNamed, pid.Path.Type())
	require.NotNil(t, pid.Unique)
	assert.NotEqual(t, uuid.Nil, pid.Unique.ID())
	assert.True(t, pid.IsLocal())

	assert.Eventually(t, func() bool { return actor.ReceivedCount() == 1 },
		time.Second, 10*time.Millisecond, "Started delivered")
}

func TestSpawnInvalidName(t *testing.T) {
	sys := newTestSystem(t)

	for _, name := range []string{"", "a//b", "/lead", "trail/"} {
		assert.Nil(t, sys.Spawn(&EchoActor{}, name), "name %q", name)
	}
	assert.Equal(t, 0, sys.Count())
}

func TestSpawnDuplicate(t *testing.T) {
	sys := newTestSystem(t)

	pid1 := sys.Spawn(&EchoActor{}, "echo")
	pid2 := sys.Spawn(&EchoActor{}, "echo")

	assert.Same(t, pid1, pid2)
	assert.Equal(t, 1, sys.Count())
}

func TestUniquePathsDiffer(t *testing.T) {
	sys := newTestSystem(t)

	a := sys.Spawn(&EchoActor{}, "a")
	b := sys.Spawn(&EchoActor{}, "b")
	assert.False(t, a.Unique.Equal(b.Unique))
}

func TestChildPaths(t *testing.T) {
	sys := newTestSystem(t)

	children := make(chan *PID, 1)
	parent := sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		if _, ok := msg.(*Started); ok {
			children <- ctx.Spawn(&EchoActor{}, "child")
		}
	}), "parent")
	require.NotNil(t, parent)

	var child *PID
	select {
	case child = <-children:
	case <-time.After(time.Second):
		t.Fatal("child not spawned")
	}
	require.NotNil(t, child)
	assert.Equal(t, "parent/child", child.ID)
	assert.Equal(t, []string{"parent", "child"}, child.Path.(*address.NamedPath).Segments())

	// 停止父 Actor 会连带停止子 Actor
	require.NoError(t, sys.StopGracefully(parent, time.Second))
	assert.Eventually(t, func() bool {
		_, ok := sys.GetActor("parent/child")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

// ============== 路径解析 ==============

func TestResolve(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&EchoActor{}, "svc/worker")

	got, ok := sys.Resolve(address.MustNamedPath(localSystem, "svc", "worker"))
	require.True(t, ok)
	assert.Same(t, pid, got)

	got, ok = sys.Resolve(address.NewUniquePath(localSystem, pid.Unique.ID()))
	require.True(t, ok)
	assert.Same(t, pid, got)

	_, ok = sys.Resolve(address.MustNamedPath(localSystem, "svc"))
	assert.False(t, ok, "prefix is not a match")

	_, ok = sys.Resolve(address.MustNamedPath(remoteSystem, "svc", "worker"))
	assert.False(t, ok, "other system")

	_, ok = sys.Resolve(nil)
	assert.False(t, ok)
}

func TestPIDOf(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&EchoActor{}, "echo")

	assert.Same(t, pid, sys.PIDOf(pid.Path))

	remote := sys.PIDOf(address.MustNamedPath(remoteSystem, "echo"))
	require.NotNil(t, remote)
	assert.False(t, remote.IsLocal())
	assert.Empty(t, remote.ID)
	assert.Nil(t, remote.Unique)

	assert.Nil(t, sys.PIDOf(nil))
}

// ============== 消息收发 ==============

func TestSendMessage(t *testing.T) {
	sys := newTestSystem(t)

	actor := &CounterActor{}
	pid := sys.Spawn(actor, "counter")

	for i := range 10 {
		pid.Tell(&CountMessage{Value: i})
	}

	assert.Eventually(t, func() bool { return actor.Count() == 10 }, time.Second, 10*time.Millisecond)
}

func TestTrySend(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&EchoActor{}, "echo")

	assert.True(t, pid.TrySend(&PingMessage{}))
	assert.False(t, (&PID{ID: "detached"}).TrySend(&PingMessage{}))
}

func TestRequestResponse(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&RequestResponseActor{}, "responder")

	resp, err := pid.Request(&PingMessage{}, time.Second)
	require.NoError(t, err)
	_, ok := resp.(*PongMessage)
	assert.True(t, ok, "expected PongMessage")

	echo, err := Ask[*EchoMessage](pid, &EchoMessage{Text: "Hello"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Echo: Hello", echo.Text)

	_, err = Ask[*EchoMessage](pid, &PingMessage{}, time.Second)
	assert.Error(t, err, "reply type mismatch")
}

func TestRequestTimeout(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&CounterActor{}, "silent")

	_, err := pid.Request(&PingMessage{}, 100*time.Millisecond)
	var timeout *ResponseTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Same(t, pid, timeout.Target)
}

func TestRequestRemoteRejected(t *testing.T) {
	sys := newTestSystem(t)
	remote := sys.PIDOf(address.MustNamedPath(remoteSystem, "echo"))

	_, err := remote.Request(&PingMessage{}, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestActorFunc(t *testing.T) {
	sys := newTestSystem(t)

	var received atomic.Int32
	pid := sys.Spawn(ActorFunc(func(_ *Context, msg Message) {
		if _, ok := msg.(*PingMessage); ok {
			received.Add(1)
		}
	}), "func-actor")

	pid.Tell(&PingMessage{})
	pid.Tell(&PingMessage{})
	pid.Tell(&PingMessage{})

	assert.Eventually(t, func() bool { return received.Load() == 3 }, time.Second, 10*time.Millisecond)
}

func TestPanicRecovered(t *testing.T) {
	var panics atomic.Int32
	cfg := DefaultSystemConfig()
	cfg.SystemPath = localSystem
	cfg.PanicHandler = func(*PID, Message, any) { panics.Add(1) }
	sys := NewSystemWithConfig("test", cfg)
	defer sys.Shutdown()

	actor := &PanicActor{}
	pid := sys.Spawn(actor, "fragile")
	pid.Tell(&PanicMessage{})
	pid.Tell(&CountMessage{})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&actor.handled) == 1 },
		time.Second, 10*time.Millisecond, "actor keeps running after panic")
	assert.Equal(t, int32(1), panics.Load())
	assert.Equal(t, int64(1), sys.Stats().Panics)
}

// ============== 停止 ==============

func TestStopActor(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&EchoActor{}, "echo")

	sys.Stop(pid)

	assert.Eventually(t, func() bool {
		_, ok := sys.GetActor("echo")
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, ok := sys.Resolve(pid.Unique)
	assert.False(t, ok, "unique index cleaned up")
}

func TestStopGracefully(t *testing.T) {
	sys := newTestSystem(t)
	pid := sys.Spawn(&EchoActor{}, "echo")

	require.NoError(t, sys.StopGracefully(pid, time.Second))
	_, ok := sys.GetActor("echo")
	assert.False(t, ok)
}

func TestWatchTerminated(t *testing.T) {
	sys := newTestSystem(t)

	target := sys.Spawn(&EchoActor{}, "target")
	terminated := make(chan *PID, 1)
	sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		switch m := msg.(type) {
		case *Started:
			ctx.Watch(target)
		case *Terminated:
			terminated <- m.Who
		}
	}), "watcher")

	// 等待 Watch 先于 PoisonPill 到达
	time.Sleep(50 * time.Millisecond)
	sys.Stop(target)

	select {
	case who := <-terminated:
		assert.Same(t, target, who)
	case <-time.After(time.Second):
		t.Fatal("no Terminated received")
	}
}

func TestUnwatch(t *testing.T) {
	sys := newTestSystem(t)

	target := sys.Spawn(&EchoActor{}, "target")
	terminated := make(chan *PID, 1)
	sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		switch m := msg.(type) {
		case *Started:
			ctx.Watch(target)
			ctx.Unwatch(target)
		case *Terminated:
			terminated <- m.Who
		}
	}), "watcher")

	time.Sleep(50 * time.Millisecond)
	sys.Stop(target)

	select {
	case who := <-terminated:
		t.Fatalf("unexpected Terminated for %s", who)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStopSelf(t *testing.T) {
	sys := newTestSystem(t)

	stopped := make(chan struct{})
	sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		switch msg.(type) {
		case *CountMessage:
			ctx.StopSelf()
		case *Stopped:
			close(stopped)
		}
	}), "one-shot")

	pid, ok := sys.GetActor("one-shot")
	require.True(t, ok)
	pid.Tell(&CountMessage{})

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("actor did not stop itself")
	}
	assert.Eventually(t, func() bool {
		_, ok := sys.GetActor("one-shot")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestForwardKeepsSender(t *testing.T) {
	sys := newTestSystem(t)

	echo := &EchoActor{}
	target := sys.Spawn(echo, "target")
	router := sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		if _, ok := msg.(*EchoMessage); ok {
			ctx.Forward(target)
		}
	}), "router")
	client := sys.Spawn(&CounterActor{}, "client")

	sys.SendWithSender(router, &EchoMessage{Text: "hi"}, client)

	assert.Eventually(t, func() bool {
		s := echo.LastSender()
		return s != nil && s == client
	}, time.Second, 10*time.Millisecond)
}

func TestListActors(t *testing.T) {
	sys := newTestSystem(t)

	sys.Spawn(&EchoActor{}, "actor-1")
	sys.Spawn(&EchoActor{}, "actor-2")
	sys.Spawn(&EchoActor{}, "group/actor-3")

	assert.Len(t, sys.ListActors(), 3)
	assert.Equal(t, 3, sys.Count())
}

func TestStats(t *testing.T) {
	sys := newTestSystem(t)

	// 邮箱需容纳 Started 加 100 条消息
	actor := &CounterActor{}
	pid := sys.SpawnWithProps(actor, DefaultProps("counter").WithMailboxSize(200))
	for i := range 100 {
		pid.Tell(&CountMessage{Value: i})
	}

	assert.Eventually(t, func() bool { return actor.Count() == 100 }, time.Second, 10*time.Millisecond)

	stats := sys.Stats()
	assert.Equal(t, int64(1), stats.TotalActors)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(101))
	assert.Zero(t, stats.DeadLetters)
}

func TestSmallMailboxOverflowsToDeadLetters(t *testing.T) {
	sys := newTestSystem(t)

	block := make(chan struct{})
	pid := sys.SpawnWithProps(ActorFunc(func(_ *Context, msg Message) {
		if _, ok := msg.(*CountMessage); ok {
			<-block
		}
	}), DefaultProps("slow").WithMailboxSize(1))
	defer close(block)

	for i := range 10 {
		pid.Tell(&CountMessage{Value: i})
	}

	assert.Eventually(t, func() bool { return sys.Stats().DeadLetters > 0 }, time.Second, 10*time.Millisecond)
}

// ============== 跨系统 ==============

func TestRemoteSendUsesSenderPath(t *testing.T) {
	sys := newTestSystem(t)
	r := &recordingRemote{}
	sys.SetRemote(r)

	sender := sys.Spawn(&EchoActor{}, "client")
	target := sys.PIDOf(address.MustNamedPath(remoteSystem, "svc"))

	sys.SendWithSender(target, &PingMessage{}, sender)
	target.Tell(&PongMessage{})

	sent := r.Sent()
	require.Len(t, sent, 2)
	assert.True(t, sent[0].src.Equal(sender.Path))
	assert.True(t, sent[0].dst.Equal(target.Path))
	assert.Equal(t, "ping", sent[0].msg.Kind())

	// 匿名发送使用死信路径作为源
	assert.True(t, sent[1].src.Equal(address.MustNamedPath(localSystem, DeadLetterName)))
	assert.Equal(t, int64(2), sys.Stats().RemoteMessages)
}

func TestForwardToRemoteKeepsSender(t *testing.T) {
	sys := newTestSystem(t)
	r := &recordingRemote{}
	sys.SetRemote(r)

	remoteTarget := sys.PIDOf(address.MustNamedPath(remoteSystem, "svc", "worker"))
	router := sys.Spawn(ActorFunc(func(ctx *Context, msg Message) {
		if _, ok := msg.(*EchoMessage); ok {
			ctx.Forward(remoteTarget)
		}
	}), "router")
	client := sys.Spawn(&CounterActor{}, "client")

	sys.SendWithSender(router, &EchoMessage{Text: "hi"}, client)

	assert.Eventually(t, func() bool { return len(r.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	sent := r.Sent()[0]
	assert.True(t, sent.src.Equal(client.Path), "source is the original sender, not the router")
	assert.True(t, sent.dst.Equal(remoteTarget.Path))
	assert.Equal(t, "echo", sent.msg.Kind())
}

func TestRemoteSendFailureIsDeadLetter(t *testing.T) {
	sys := newTestSystem(t)
	target := sys.PIDOf(address.MustNamedPath(remoteSystem, "svc"))

	// 未安装 Remote
	assert.False(t, target.TrySend(&PingMessage{}))

	sys.SetRemote(&recordingRemote{fail: errors.New("link down")})
	target.Tell(&PingMessage{})

	assert.Equal(t, int64(2), sys.Stats().DeadLetters)
	assert.Zero(t, sys.Stats().RemoteMessages)
}

func TestDeliverLocalEnvelope(t *testing.T) {
	sys := newTestSystem(t)
	r := &recordingRemote{}
	sys.SetRemote(r)

	actor := &EchoActor{}
	pid := sys.Spawn(actor, "svc/echo")
	src := address.MustNamedPath(remoteSystem, "client")

	err := sys.Deliver(envelope.LocalEnvelope{Src: src, Dst: pid.Path, Value: &EchoMessage{Text: "hi"}})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return actor.ReceivedCount() == 2 }, time.Second, 10*time.Millisecond)
	sender := actor.LastSender()
	require.NotNil(t, sender)
	assert.False(t, sender.IsLocal())
	assert.True(t, sender.Path.Equal(src))

	// 回复沿 Remote 返回发送者
	assert.Eventually(t, func() bool { return len(r.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	reply := r.Sent()[0]
	assert.True(t, reply.src.Equal(pid.Path))
	assert.True(t, reply.dst.Equal(src))
}

func TestDeliverReceiveEnvelope(t *testing.T) {
	sys := newTestSystem(t)
	actor := &CounterActor{}
	pid := sys.Spawn(actor, "counter")

	env := envelope.ReceiveEnvelope{
		Src:   address.MustNamedPath(remoteSystem, "client"),
		Dst:   pid.Unique,
		SerID: serial.SerIDU64,
		Data:  serial.Wrap([]byte{0, 0, 0, 0, 0, 0, 0, 5}),
	}

	assert.ErrorIs(t, sys.Deliver(env), ErrNoRemote)

	sys.SetRemote(&recordingRemote{codec: map[uint64]func(*serial.Cursor) (Message, error){
		serial.SerIDU64: func(c *serial.Cursor) (Message, error) {
			v, err := c.U64()
			return &CountMessage{Value: int(v)}, err
		},
	}})
	require.NoError(t, sys.Deliver(env))
	assert.Eventually(t, func() bool { return actor.Count() == 1 }, time.Second, 10*time.Millisecond)

	env.SerID = 999
	assert.Error(t, sys.Deliver(env))
}

func TestDeliverErrors(t *testing.T) {
	sys := newTestSystem(t)
	src := address.MustNamedPath(remoteSystem, "client")

	err := sys.Deliver(envelope.LocalEnvelope{Src: src, Dst: address.MustNamedPath(localSystem, "nobody"), Value: &PingMessage{}})
	assert.ErrorIs(t, err, ErrActorNotFound)

	pid := sys.Spawn(&EchoActor{}, "echo")
	err = sys.Deliver(envelope.LocalEnvelope{Src: src, Dst: pid.Path, Value: 42})
	assert.ErrorIs(t, err, ErrNotMessage)

	sys.Shutdown()
	err = sys.Deliver(envelope.LocalEnvelope{Src: src, Dst: pid.Path, Value: &PingMessage{}})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRemotePID(t *testing.T) {
	sys := newTestSystem(t)

	pid, err := RemotePID(sys, "tcp://127.0.0.1:7002/svc/worker")
	require.NoError(t, err)
	assert.False(t, pid.IsLocal())

	_, err = RemotePID(sys, "tcp://127.0.0.1:7002")
	assert.Error(t, err)
}

// ============== 并发测试 ==============

func TestConcurrentSend(t *testing.T) {
	sys := newTestSystem(t)

	actor := &CounterActor{}
	pid := sys.SpawnWithProps(actor, DefaultProps("counter").WithMailboxSize(200))

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			pid.Tell(&CountMessage{Value: 1})
		})
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return actor.Count() == 100 }, 2*time.Second, 10*time.Millisecond)
}
