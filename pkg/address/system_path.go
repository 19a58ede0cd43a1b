package address

import (
	"net"
	"net/netip"
	"strconv"
)

// SystemPath 承载一个或多个 Actor 的网络端点
type SystemPath struct {
	Protocol Protocol
	Host     Host
	Port     uint16
}

// NewSystemPath 创建系统路径
func NewSystemPath(protocol Protocol, host Host, port uint16) SystemPath {
	return SystemPath{Protocol: protocol, Host: host, Port: port}
}

// TCPSystem 便捷构造 TCP + IP 的系统路径
func TCPSystem(ip netip.Addr, port uint16) SystemPath {
	return SystemPath{Protocol: ProtocolTCP, Host: IPHost(ip), Port: port}
}

// Equal 比较两个系统路径
func (s SystemPath) Equal(other SystemPath) bool {
	return s.Protocol == other.Protocol && s.Port == other.Port && s.Host.Equal(other.Host)
}

// HostPort 返回 "host:port" 形式，可直接用于拨号
func (s SystemPath) HostPort() string {
	return net.JoinHostPort(s.Host.String(), strconv.Itoa(int(s.Port)))
}

// String 返回 "tcp://127.0.0.1:8080" 形式
func (s SystemPath) String() string {
	return s.Protocol.String() + "://" + s.HostPort()
}

// encodedLen 头字节之后系统路径部分（地址 + 端口）的线路长度
func (s SystemPath) encodedLen() int {
	return s.Host.encodedLen() + 2
}
