package address

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// ParseSystemPath 解析 "tcp://127.0.0.1:8080" 形式的系统路径
func ParseSystemPath(s string) (SystemPath, error) {
	u, err := url.Parse(s)
	if err != nil {
		return SystemPath{}, serial.InvalidDataf("invalid system path %q: %v", s, err)
	}
	if u.Path != "" || u.Fragment != "" {
		return SystemPath{}, serial.InvalidDataf("system path %q must not carry an actor part", s)
	}
	return systemFromURL(s, u)
}

// ParsePath 解析 ActorPath 的文本形式
//
//	tcp://127.0.0.1:8080#6ba7b810-9dad-11d1-80b4-00c04fd430c8   Unique
//	tcp://[::1]:8080/svc/worker                                  Named
func ParsePath(s string) (ActorPath, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, serial.InvalidDataf("invalid actor path %q: %v", s, err)
	}
	sys, err := systemFromURL(s, u)
	if err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(u.Path, NameSeparator)
	switch {
	case u.Fragment != "" && name != "":
		return nil, serial.InvalidDataf("actor path %q has both a name and an id", s)
	case u.Fragment != "":
		id, err := uuid.Parse(u.Fragment)
		if err != nil {
			return nil, serial.InvalidDataf("invalid actor id %q: %v", u.Fragment, err)
		}
		return NewUniquePath(sys, id), nil
	default:
		segments, err := SplitName(name)
		if err != nil {
			return nil, err
		}
		return &NamedPath{system: sys, segments: segments}, nil
	}
}

// MustParsePath 同 ParsePath，出错时 panic
func MustParsePath(s string) ActorPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func systemFromURL(raw string, u *url.URL) (SystemPath, error) {
	proto, err := ParseProtocol(u.Scheme)
	if err != nil {
		return SystemPath{}, serial.InvalidDataf("%q: %v", raw, err)
	}
	host := u.Hostname()
	if host == "" {
		return SystemPath{}, serial.InvalidDataf("%q: missing host", raw)
	}
	portStr := u.Port()
	if portStr == "" {
		return SystemPath{}, serial.InvalidDataf("%q: missing port", raw)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return SystemPath{}, serial.InvalidDataf("%q: invalid port %q", raw, portStr)
	}
	h := MustParseHost(host)
	if d, ok := h.Domain(); ok && (len(d) > MaxDomainLen || !isHostname(d)) {
		return SystemPath{}, serial.InvalidDataf("%q: invalid domain %q", raw, d)
	}
	return SystemPath{Protocol: proto, Host: h, Port: uint16(port)}, nil
}
