package actor

import (
	"fmt"
	"time"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
)

// ═══════════════════════════════════════════════════════════════════════════
// 请求-回复辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// Ask 向本地 Actor 发送请求并按类型取回响应
//
// 用法示例:
//
//	pong, err := actor.Ask[*Pong](pid, &Ping{}, time.Second)
func Ask[T Message](pid *PID, msg Message, timeout time.Duration) (T, error) {
	var zero T

	resp, err := pid.Request(msg, timeout)
	if err != nil {
		return zero, err
	}
	v, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("actor: unexpected reply %T from %s", resp, pid)
	}
	return v, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 路径辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// RemotePID 由文本路径构造引用，例如 "tcp://10.0.0.2:7000/svc/worker"
// 返回的 PID 通过 sys 发送消息
func RemotePID(sys *System, path string) (*PID, error) {
	p, err := address.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return sys.PIDOf(p), nil
}
