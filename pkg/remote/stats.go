package remote

import (
	"sync"
	"sync/atomic"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// 节点统计信息
// ═══════════════════════════════════════════════════════════════════════════

// Stats 节点收发统计快照
type Stats struct {
	// 帧计数
	FramesOut int64 // 发出的帧数
	FramesIn  int64 // 收到的帧数
	BytesOut  int64 // 发出的字节数（不含传输层前缀）
	BytesIn   int64 // 收到的字节数

	// 本地投递
	LocalDeliveries int64 // 目的在本系统、未经网络的投递

	// 错误计数
	EncodeErrors  int64 // 编码失败
	DecodeErrors  int64 // 帧格式错误
	UnknownSerIDs int64 // ser_id 未注册
	Undeliverable int64 // 目的 Actor 不存在或不属于本系统
	SendErrors    int64 // 传输层发送失败

	// 时间戳
	StartedAt   time.Time
	LastFrameAt time.Time

	// LastError 最后一个错误
	LastError error
}

// statsCollector 原子计数的统计收集器
type statsCollector struct {
	framesOut       atomic.Int64
	framesIn        atomic.Int64
	bytesOut        atomic.Int64
	bytesIn         atomic.Int64
	localDeliveries atomic.Int64
	encodeErrors    atomic.Int64
	decodeErrors    atomic.Int64
	unknownSerIDs   atomic.Int64
	undeliverable   atomic.Int64
	sendErrors      atomic.Int64

	// 非原子字段，需要锁保护
	mu          sync.RWMutex
	startedAt   time.Time
	lastFrameAt time.Time
	lastError   error
}

func newStatsCollector() *statsCollector {
	return &statsCollector{startedAt: time.Now()}
}

func (c *statsCollector) recordOut(n int) {
	c.framesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

func (c *statsCollector) recordIn(n int) {
	c.framesIn.Add(1)
	c.bytesIn.Add(int64(n))
	c.mu.Lock()
	c.lastFrameAt = time.Now()
	c.mu.Unlock()
}

// recordError 计数并保留最后一个错误
func (c *statsCollector) recordError(counter *atomic.Int64, err error) {
	counter.Add(1)
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() *Stats {
	s := &Stats{
		FramesOut:       c.framesOut.Load(),
		FramesIn:        c.framesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
		BytesIn:         c.bytesIn.Load(),
		LocalDeliveries: c.localDeliveries.Load(),
		EncodeErrors:    c.encodeErrors.Load(),
		DecodeErrors:    c.decodeErrors.Load(),
		UnknownSerIDs:   c.unknownSerIDs.Load(),
		Undeliverable:   c.undeliverable.Load(),
		SendErrors:      c.sendErrors.Load(),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	s.StartedAt = c.startedAt
	s.LastFrameAt = c.lastFrameAt
	s.LastError = c.lastError
	return s
}
