package address

import (
	"fmt"
	"strings"
)

// Protocol 系统路径使用的传输协议
// 线路上占头字节的高 5 位
type Protocol uint8

const (
	// ProtocolLocal 同进程内投递
	ProtocolLocal Protocol = iota
	// ProtocolTCP 长度前缀分帧的 TCP
	ProtocolTCP
	// ProtocolUDP UDP 数据报
	ProtocolUDP
	// ProtocolWS WebSocket 二进制消息
	ProtocolWS

	maxProtocol = ProtocolWS
)

// String 返回协议的 URL scheme
func (p Protocol) String() string {
	switch p {
	case ProtocolLocal:
		return "local"
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolWS:
		return "ws"
	default:
		return fmt.Sprintf("protocol(%d)", uint8(p))
	}
}

// Valid 是否为已知协议
func (p Protocol) Valid() bool { return p <= maxProtocol }

// ParseProtocol 解析协议名（大小写不敏感）
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "local":
		return ProtocolLocal, nil
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	case "ws":
		return ProtocolWS, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}
