package address

import (
	"math"
	"net/netip"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// 头字节布局：
//
//	bit0    路径类型 (0=Unique, 1=Named)
//	bit1-2  地址族   (0=IPv4, 1=IPv6, 2=Domain)
//	bit3-7  协议 id
const (
	pathTypeMask    = 0b0000_0001
	familyShift     = 1
	familyMask      = 0b11
	protocolShift   = 3
	protocolMaxBits = 0b1_1111
)

// Header 解包后的 ActorPath 头字节
type Header struct {
	PathType PathType
	Family   Family
	Protocol Protocol
}

// Pack 打包为单字节
func (h Header) Pack() byte {
	return byte(h.PathType)&pathTypeMask |
		(byte(h.Family)&familyMask)<<familyShift |
		(byte(h.Protocol)&protocolMaxBits)<<protocolShift
}

// UnpackHeader 解包并校验头字节
func UnpackHeader(b byte) (Header, error) {
	h := Header{
		PathType: PathType(b & pathTypeMask),
		Family:   Family((b >> familyShift) & familyMask),
		Protocol: Protocol(b >> protocolShift),
	}
	if h.Family > FamilyDomain {
		return Header{}, serial.InvalidDataf("unsupported address family %d", uint8(h.Family))
	}
	if !h.Protocol.Valid() {
		return Header{}, serial.InvalidDataf("unknown protocol id %d", uint8(h.Protocol))
	}
	return h, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 编码
// ═══════════════════════════════════════════════════════════════════════════

// Encode 将 ActorPath 追加写入 buf
//
//	header   u8
//	address  4B (IPv4) | 16B (IPv6) | u8 长度 + 域名字节 (Domain)
//	port     u16 大端序
//	payload  Unique: 16B UUID
//	         Named:  u16 大端序长度 N，随后 N 字节 UTF-8，以 '/' 分段
//
// 校验在写入任何字节之前完成，出错时 buf 不变。
func Encode(p ActorPath, buf *serial.Buffer) error {
	var name string
	switch v := p.(type) {
	case *UniquePath:
		if v == nil {
			return serial.InvalidData("nil unique path")
		}
	case *NamedPath:
		if v == nil {
			return serial.InvalidData("nil named path")
		}
		if err := validateSegments(v.segments); err != nil {
			return err
		}
		name = v.Name()
		if len(name) > math.MaxUint16 {
			return serial.InvalidDataf("named path is %d bytes, max %d", len(name), math.MaxUint16)
		}
	default:
		return serial.InvalidDataf("unsupported actor path type %T", p)
	}

	sys := p.System()
	if !sys.Protocol.Valid() {
		return serial.InvalidDataf("unknown protocol id %d", uint8(sys.Protocol))
	}
	if d, ok := sys.Host.Domain(); ok {
		if len(d) > MaxDomainLen {
			return serial.InvalidDataf("domain is %d bytes, max %d", len(d), MaxDomainLen)
		}
		if !isHostname(d) {
			return serial.InvalidDataf("invalid domain %q", d)
		}
	}

	h := Header{PathType: p.Type(), Family: sys.Host.Family(), Protocol: sys.Protocol}
	buf.PutU8(h.Pack())
	encodeHost(sys.Host, buf)
	buf.PutU16(sys.Port)

	switch v := p.(type) {
	case *UniquePath:
		buf.PutSlice(v.id[:])
	case *NamedPath:
		buf.PutU16(uint16(len(name)))
		buf.PutString(name)
	}
	return nil
}

func encodeHost(h Host, buf *serial.Buffer) {
	switch h.Family() {
	case FamilyDomain:
		buf.PutU8(uint8(len(h.domain)))
		buf.PutString(h.domain)
	case FamilyIPv6:
		ip, _ := h.IP()
		b := ip.As16()
		buf.PutSlice(b[:])
	default:
		ip, _ := h.IP()
		b := ip.As4()
		buf.PutSlice(b[:])
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 解码
// ═══════════════════════════════════════════════════════════════════════════

// Decode 从游标读取一个 ActorPath
// 只消费头字节声明的字节；任何结构错误都返回 InvalidData，不返回部分路径
func Decode(c *serial.Cursor) (ActorPath, error) {
	b, err := c.U8()
	if err != nil {
		return nil, serial.InvalidData("missing actor path header")
	}
	h, err := UnpackHeader(b)
	if err != nil {
		return nil, err
	}

	host, err := decodeHost(h.Family, c)
	if err != nil {
		return nil, err
	}
	port, err := c.U16()
	if err != nil {
		return nil, serial.InvalidData("could not read 2 bytes for port")
	}
	system := SystemPath{Protocol: h.Protocol, Host: host, Port: port}

	switch h.PathType {
	case PathUnique:
		var id uuid.UUID
		if err := c.CopyInto(id[:]); err != nil {
			return nil, serial.InvalidDataf("could not parse UUID: %d bytes available", c.Remaining())
		}
		return &UniquePath{system: system, id: id}, nil
	default:
		n, err := c.U16()
		if err != nil {
			return nil, serial.InvalidData("could not read named path length")
		}
		raw, err := c.Take(int(n))
		if err != nil {
			return nil, serial.InvalidDataf("named path declares %d bytes, %d available", n, c.Remaining())
		}
		name := raw.Text()
		if !utf8.ValidString(name) {
			return nil, serial.InvalidData("named path is not valid UTF-8")
		}
		segments, err := SplitName(name)
		if err != nil {
			return nil, err
		}
		return &NamedPath{system: system, segments: segments}, nil
	}
}

func decodeHost(f Family, c *serial.Cursor) (Host, error) {
	switch f {
	case FamilyIPv4:
		var b [4]byte
		if err := c.CopyInto(b[:]); err != nil {
			return Host{}, serial.InvalidData("could not parse 4 bytes for IPv4 address")
		}
		return IPHost(netip.AddrFrom4(b)), nil
	case FamilyIPv6:
		var b [16]byte
		if err := c.CopyInto(b[:]); err != nil {
			return Host{}, serial.InvalidData("could not parse 16 bytes for IPv6 address")
		}
		return IPHost(netip.AddrFrom16(b)), nil
	default:
		n, err := c.U8()
		if err != nil {
			return Host{}, serial.InvalidData("could not read domain length")
		}
		if n == 0 {
			return Host{}, serial.InvalidData("empty domain")
		}
		raw, err := c.Take(int(n))
		if err != nil {
			return Host{}, serial.InvalidDataf("domain declares %d bytes, %d available", n, c.Remaining())
		}
		name := raw.Text()
		if !isHostname(name) {
			return Host{}, serial.InvalidDataf("invalid domain %q", name)
		}
		return DomainHost(name), nil
	}
}

// isHostname 按标签校验：标签非空，由 ASCII 字母数字、'-'、'_' 组成，
// 且不以 '-' 开头或结尾；允许一个结尾的 '.'
func isHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return false
	}
	for label := range strings.SplitSeq(s, ".") {
		if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			ch := label[i]
			switch {
			case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			case ch == '-' || ch == '_':
			default:
				return false
			}
		}
	}
	return true
}

// PathDeserialiser ActorPath 的 serial.Deserialiser
var PathDeserialiser = serial.DeserialiserFunc[ActorPath](Decode)
