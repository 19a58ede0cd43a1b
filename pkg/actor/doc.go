// Package actor 提供带路径寻址的轻量级 Actor 运行时
//
// 每个 Actor 是独立的计算单元：
// • 拥有私有状态（无需锁保护）
// • 通过消息邮箱（mailbox）接收消息
// • 消息处理串行化（一次处理一条）
//
// # 核心组件
//
// [System] 是 Actor 系统的入口，绑定一个 [address.SystemPath]：
//
//	cfg := actor.DefaultSystemConfig()
//	cfg.SystemPath = address.TCPSystem(netip.MustParseAddr("10.0.0.1"), 7000)
//	sys := actor.NewSystemWithConfig("node-a", cfg)
//	defer sys.Shutdown()
//
// [System.Spawn] 注册 Actor 时分配两条路径：由名称拆分得到的命名路径 [PID.Path]，
// 以及随机 UUID 构成的唯一路径 [PID.Unique]。[System.Resolve] 按任一路径查找本地 Actor。
//
// # 跨系统发送
//
// 目标 PID 的系统路径与本系统不同时，消息交给通过 [System.SetRemote] 安装的 [Remote]。
// 入站信封经 [System.Deliver] 投递，源路径成为 [Context.Sender]，
// 因此 [Context.Reply] 会沿原路返回。
//
// # 系统消息
//
// Actor 生命周期中会收到以下系统消息：[Started] 启动完成，[Stopping] 正在停止，
// [Stopped] 已停止，[Terminated] 被监控的 Actor 终止。
//
// Receive 中的 panic 会被恢复并记录，Actor 继续处理下一条消息。
package actor
