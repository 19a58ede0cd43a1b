// Package serial 定义跨 Actor 边界传输消息所需的编解码能力
//
// 消息类型通过实现 [Serialisable] 声明自己的数值标签（ser_id）、
// 精确的编码长度以及写出方式；接收方通过 [Deserialiser] 将不透明的负载还原为具体值。
// 线路上除 ser_id 外没有任何类型信息，也不依赖反射。
//
// 编码写入独占的 [Buffer]，完成后通过 [Buffer.Freeze] 冻结为不可变的 [Bytes]，
// 冻结后的字节可以无复制地在 goroutine 之间共享。
package serial

// Serialisable 可跨边界传输的消息能力
type Serialisable interface {
	// SerID 返回稳定的数值标签，是接收端唯一的分发依据
	SerID() uint64
	// SizeHint 返回 Serialise 将写入的字节数
	// ok 为 false 表示该值无法被序列化（这是硬错误，不是"未知长度"）
	SizeHint() (size int, ok bool)
	// Serialise 按顺序写入恰好 SizeHint 声明的字节
	Serialise(buf *Buffer) error
}

// Localer 可选能力：同进程投递时直接交付原始值
// ok 为 false 表示应走序列化路径
type Localer interface {
	Local() (value any, ok bool)
}

// Deserialiser 从游标中还原 T
type Deserialiser[T any] interface {
	Deserialise(c *Cursor) (T, error)
}

// DeserialiserFunc 函数式 Deserialiser
type DeserialiserFunc[T any] func(c *Cursor) (T, error)

// Deserialise 实现 Deserialiser 接口
func (f DeserialiserFunc[T]) Deserialise(c *Cursor) (T, error) {
	return f(c)
}

// SizeHintOrZero 返回大小声明，缺失时为 0
func SizeHintOrZero(s Serialisable) int {
	if n, ok := s.SizeHint(); ok {
		return n
	}
	return 0
}

// AsLocal 尝试本地转换；未实现 Localer 时返回 false
func AsLocal(s Serialisable) (any, bool) {
	if l, ok := s.(Localer); ok {
		return l.Local()
	}
	return nil, false
}
