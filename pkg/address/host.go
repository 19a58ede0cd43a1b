package address

import (
	"fmt"
	"net/netip"
)

// Family 地址族，线路上占头字节的 bit1-2
type Family uint8

const (
	FamilyIPv4   Family = 0
	FamilyIPv6   Family = 1
	FamilyDomain Family = 2
)

// String 返回地址族名称
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	case FamilyDomain:
		return "Domain"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// MaxDomainLen 域名编码的最大字节数（单字节长度前缀）
const MaxDomainLen = 255

// Host 系统路径的主机部分：IPv4、IPv6 或域名
// 域名不会在本层解析
type Host struct {
	ip     netip.Addr
	domain string
}

// IPHost 由 IP 地址创建主机，IPv6 zone 会被丢弃
func IPHost(ip netip.Addr) Host {
	return Host{ip: ip.WithZone("")}
}

// DomainHost 由域名创建主机
func DomainHost(name string) Host {
	return Host{domain: name}
}

// MustParseHost 解析 IP 字面量，失败则按域名处理
func MustParseHost(s string) Host {
	if ip, err := netip.ParseAddr(s); err == nil {
		return IPHost(ip)
	}
	return DomainHost(s)
}

// Family 返回地址族
func (h Host) Family() Family {
	switch {
	case h.domain != "":
		return FamilyDomain
	case h.ip.Is4():
		return FamilyIPv4
	case h.ip.Is6():
		return FamilyIPv6
	}
	// 零值按 IPv4 0.0.0.0 处理
	return FamilyIPv4
}

// IP 返回 IP 地址；域名主机返回 false
func (h Host) IP() (netip.Addr, bool) {
	if h.domain != "" {
		return netip.Addr{}, false
	}
	if !h.ip.IsValid() {
		return netip.IPv4Unspecified(), true
	}
	return h.ip, true
}

// Domain 返回域名；IP 主机返回 false
func (h Host) Domain() (string, bool) {
	return h.domain, h.domain != ""
}

// String 返回主机文本形式
func (h Host) String() string {
	if h.domain != "" {
		return h.domain
	}
	ip, _ := h.IP()
	return ip.String()
}

// Equal 比较两个主机是否相同
func (h Host) Equal(other Host) bool {
	if h.domain != "" || other.domain != "" {
		return h.domain == other.domain
	}
	a, _ := h.IP()
	b, _ := other.IP()
	return a == b
}

// encodedLen 地址部分的线路长度
func (h Host) encodedLen() int {
	switch h.Family() {
	case FamilyIPv6:
		return 16
	case FamilyDomain:
		return 1 + len(h.domain)
	default:
		return 4
	}
}
