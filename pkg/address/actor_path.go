package address

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// PathType Actor 路径类型，线路上占头字节的 bit0
type PathType uint8

const (
	// PathUnique 128 位全局唯一标识
	PathUnique PathType = 0
	// PathNamed 层级名称
	PathNamed PathType = 1
)

// String 返回路径类型名称
func (t PathType) String() string {
	if t == PathNamed {
		return "Named"
	}
	return "Unique"
}

// NameSeparator 命名路径的段分隔符
const NameSeparator = "/"

// ActorPath 对 Actor 的位置引用
// 由运行时在 Actor 注册时创建，之后不可变
//
// ActorPath 同时实现 serial.Serialisable，编码格式见 [Encode]。
type ActorPath interface {
	// System 返回所属系统路径
	System() SystemPath
	// Type 返回路径类型
	Type() PathType
	// Equal 比较系统路径与身份
	Equal(other ActorPath) bool
	// String 返回文本形式，可被 ParsePath 解析
	String() string

	serial.Serialisable
}

// ═══════════════════════════════════════════════════════════════════════════
// UniquePath
// ═══════════════════════════════════════════════════════════════════════════

// UniquePath 由 UUID 标识的 Actor 路径
// 每个 Actor 实例分配一次，永不复用
type UniquePath struct {
	system SystemPath
	id     uuid.UUID
}

// NewUniquePath 创建唯一路径
func NewUniquePath(system SystemPath, id uuid.UUID) *UniquePath {
	return &UniquePath{system: system, id: id}
}

// System 实现 ActorPath
func (p *UniquePath) System() SystemPath { return p.system }

// Type 实现 ActorPath
func (p *UniquePath) Type() PathType { return PathUnique }

// ID 返回 UUID
func (p *UniquePath) ID() uuid.UUID { return p.id }

// Equal 实现 ActorPath
func (p *UniquePath) Equal(other ActorPath) bool {
	o, ok := other.(*UniquePath)
	return ok && o != nil && p.id == o.id && p.system.Equal(o.system)
}

// String 返回 "tcp://127.0.0.1:8080#<uuid>"
func (p *UniquePath) String() string {
	return p.system.String() + "#" + p.id.String()
}

// SerID 实现 serial.Serialisable
func (p *UniquePath) SerID() uint64 { return serial.SerIDActorPath }

// SizeHint 实现 serial.Serialisable
func (p *UniquePath) SizeHint() (int, bool) {
	if p == nil {
		return 0, false
	}
	return 1 + p.system.encodedLen() + 16, true
}

// Serialise 实现 serial.Serialisable
func (p *UniquePath) Serialise(buf *serial.Buffer) error {
	return Encode(p, buf)
}

// ═══════════════════════════════════════════════════════════════════════════
// NamedPath
// ═══════════════════════════════════════════════════════════════════════════

// NamedPath 由层级名称标识的 Actor 路径，例如 ["svc", "worker"]
// 在系统路径内按约定唯一，本层不做强制
type NamedPath struct {
	system   SystemPath
	segments []string
}

// NewNamedPath 创建命名路径
// 至少需要一个段，段不能为空也不能包含分隔符
func NewNamedPath(system SystemPath, segments ...string) (*NamedPath, error) {
	if err := validateSegments(segments); err != nil {
		return nil, err
	}
	return &NamedPath{system: system, segments: slices.Clone(segments)}, nil
}

// MustNamedPath 同 NewNamedPath，出错时 panic
func MustNamedPath(system SystemPath, segments ...string) *NamedPath {
	p, err := NewNamedPath(system, segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// System 实现 ActorPath
func (p *NamedPath) System() SystemPath { return p.system }

// Type 实现 ActorPath
func (p *NamedPath) Type() PathType { return PathNamed }

// Segments 返回路径段副本
func (p *NamedPath) Segments() []string { return slices.Clone(p.segments) }

// Name 返回以分隔符连接的名称
func (p *NamedPath) Name() string { return strings.Join(p.segments, NameSeparator) }

// Equal 实现 ActorPath
func (p *NamedPath) Equal(other ActorPath) bool {
	o, ok := other.(*NamedPath)
	return ok && o != nil && slices.Equal(p.segments, o.segments) && p.system.Equal(o.system)
}

// String 返回 "tcp://127.0.0.1:8080/svc/worker"
func (p *NamedPath) String() string {
	return p.system.String() + NameSeparator + p.Name()
}

// SerID 实现 serial.Serialisable
func (p *NamedPath) SerID() uint64 { return serial.SerIDActorPath }

// SizeHint 实现 serial.Serialisable
func (p *NamedPath) SizeHint() (int, bool) {
	if p == nil {
		return 0, false
	}
	return 1 + p.system.encodedLen() + 2 + len(p.Name()), true
}

// Serialise 实现 serial.Serialisable
func (p *NamedPath) Serialise(buf *serial.Buffer) error {
	return Encode(p, buf)
}

func validateSegments(segments []string) error {
	if len(segments) == 0 {
		return serial.InvalidData("named path needs at least one segment")
	}
	for i, s := range segments {
		if s == "" {
			return serial.InvalidDataf("named path segment %d is empty", i)
		}
		if strings.Contains(s, NameSeparator) {
			return serial.InvalidDataf("named path segment %q contains %q", s, NameSeparator)
		}
		if !utf8.ValidString(s) {
			return serial.InvalidDataf("named path segment %d is not valid UTF-8", i)
		}
	}
	return nil
}

// SplitName 将 "svc/worker" 拆分为路径段
func SplitName(name string) ([]string, error) {
	if name == "" {
		return nil, serial.InvalidData("empty name yields no path segments")
	}
	segments := strings.Split(name, NameSeparator)
	if err := validateSegments(segments); err != nil {
		return nil, err
	}
	return segments, nil
}
