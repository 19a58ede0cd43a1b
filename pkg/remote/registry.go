package remote

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/actor"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

var (
	// ErrUnknownSerID 收到未注册的 ser_id
	ErrUnknownSerID = errors.New("remote: unknown ser_id")
	// ErrDuplicateSerID 重复注册同一 ser_id
	ErrDuplicateSerID = errors.New("remote: ser_id already registered")
	// ErrReservedSerID ser_id 位于保留区
	ErrReservedSerID = errors.New("remote: ser_id is reserved")
)

// Decoder 将负载还原为消息
type Decoder interface {
	Decode(c *serial.Cursor) (actor.Message, error)
}

// DecoderFunc 函数式 Decoder
type DecoderFunc func(c *serial.Cursor) (actor.Message, error)

// Decode 实现 Decoder 接口
func (f DecoderFunc) Decode(c *serial.Cursor) (actor.Message, error) {
	return f(c)
}

// Registry ser_id 到 Decoder 的映射
// 线路上除 ser_id 外没有类型信息，接收端完全依赖此表分发
type Registry struct {
	mu       sync.RWMutex
	decoders map[uint64]Decoder
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint64]Decoder)}
}

// Register 注册 ser_id 的解码器
// 保留区（<= serial.MaxReservedSerID）和重复注册都会返回错误
func (r *Registry) Register(serID uint64, d Decoder) error {
	if serID <= serial.MaxReservedSerID {
		return fmt.Errorf("%w: %d", ErrReservedSerID, serID)
	}
	if d == nil {
		return fmt.Errorf("remote: nil decoder for ser_id %d", serID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decoders[serID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateSerID, serID)
	}
	r.decoders[serID] = d
	return nil
}

// RegisterFunc 注册函数式解码器
func (r *Registry) RegisterFunc(serID uint64, fn func(c *serial.Cursor) (actor.Message, error)) error {
	return r.Register(serID, DecoderFunc(fn))
}

// MustRegister 同 Register，出错时 panic
func (r *Registry) MustRegister(serID uint64, d Decoder) {
	if err := r.Register(serID, d); err != nil {
		panic(err)
	}
}

// Lookup 查找 ser_id 的解码器
func (r *Registry) Lookup(serID uint64) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[serID]
	return d, ok
}

// Len 返回已注册的 ser_id 数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}

// Decode 按信封的 ser_id 解码负载
func (r *Registry) Decode(env envelope.ReceiveEnvelope) (actor.Message, error) {
	d, ok := r.Lookup(env.SerID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSerID, env.SerID)
	}
	msg, err := d.Decode(env.Payload())
	if err != nil {
		return nil, fmt.Errorf("remote: decode ser_id %d: %w", env.SerID, err)
	}
	return msg, nil
}

// Register 以类型化 Deserialiser 注册 ser_id
//
//	remote.Register(reg, 42, pingDeserialiser)
func Register[T actor.Message](r *Registry, serID uint64, d serial.Deserialiser[T]) error {
	return r.Register(serID, DecoderFunc(func(c *serial.Cursor) (actor.Message, error) {
		v, err := d.Deserialise(c)
		if err != nil {
			return nil, err
		}
		return v, nil
	}))
}
