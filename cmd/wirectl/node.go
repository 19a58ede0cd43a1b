package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/actor"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/config"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/remote"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

// ═══════════════════════════════════════════════════════════════════════════
// Text 消息
// ═══════════════════════════════════════════════════════════════════════════

const textSerID uint64 = 100

// Text UTF-8 文本消息，负载为全部字节
type Text string

// Kind 实现 actor.Message
func (Text) Kind() string { return "text" }

// SerID 实现 serial.Serialisable
func (Text) SerID() uint64 { return textSerID }

// SizeHint 实现 serial.Serialisable
func (t Text) SizeHint() (int, bool) { return len(t), true }

// Serialise 实现 serial.Serialisable
func (t Text) Serialise(buf *serial.Buffer) error {
	buf.PutString(string(t))
	return nil
}

// textDeserialiser 负载即全部 UTF-8 字节
var textDeserialiser = serial.DeserialiserFunc[Text](func(c *serial.Cursor) (Text, error) {
	s, err := serial.StrDeserialiser.Deserialise(c)
	return Text(s), err
})

func newRegistry() (*remote.Registry, error) {
	reg := remote.NewRegistry()
	if err := remote.Register(reg, textSerID, textDeserialiser); err != nil {
		return nil, err
	}
	return reg, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 节点启动
// ═══════════════════════════════════════════════════════════════════════════

func nodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML or JSON config file"},
		&cli.StringSliceFlag{Name: "set", Usage: "override a config key, e.g. node.port=7001"},
	}
}

// node 运行中的系统与节点
type node struct {
	sys    *actor.System
	remote *remote.Node
	logger *slog.Logger
}

func startNode(ctx context.Context, cmd *cli.Command) (*node, error) {
	overrides := make(map[string]any)
	for _, kv := range cmd.StringSlice("set") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected key=value", kv)
		}
		overrides[key] = value
	}

	cfg, err := config.Load(cmd.String("config"), overrides)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	path, err := cfg.SystemPath()
	if err != nil {
		return nil, err
	}
	tr, err := cfg.NewTransport(logger)
	if err != nil {
		return nil, err
	}

	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	sysCfg := actor.DefaultSystemConfig()
	sysCfg.SystemPath = path
	sysCfg.Logger = logger
	sys := actor.NewSystemWithConfig(cfg.Node.Name, sysCfg)

	n := remote.NewNode(sys, tr, &remote.Config{Registry: reg, Logger: logger})
	if err := n.Start(ctx); err != nil {
		sys.Shutdown()
		return nil, err
	}
	return &node{sys: sys, remote: n, logger: logger}, nil
}

func (n *node) close() {
	_ = n.remote.Close()
	n.sys.Shutdown()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a node with an echo actor at /echo",
		Flags: nodeFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := startNode(ctx, cmd)
			if err != nil {
				return err
			}
			defer n.close()

			echo := n.sys.Spawn(actor.ActorFunc(func(c *actor.Context, msg actor.Message) {
				if t, ok := msg.(Text); ok && c.Sender != nil {
					n.logger.Info("echo", "from", c.Sender.String(), "text", string(t))
					c.Reply(t)
				}
			}), "echo")
			n.logger.Info("serving", "echo", echo.String())

			<-ctx.Done()
			return nil
		},
	}
}

func pingCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "echo actor path", Required: true},
		&cli.IntFlag{Name: "count", Usage: "number of pings", Value: 3},
		&cli.StringFlag{Name: "text", Usage: "ping text", Value: "ping"},
		&cli.DurationFlag{Name: "timeout", Usage: "per reply timeout", Value: 2 * time.Second},
	}, nodeFlags()...)

	return &cli.Command{
		Name:  "ping",
		Usage: "send text messages to an echo actor and report round trips",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			n, err := startNode(ctx, cmd)
			if err != nil {
				return err
			}
			defer n.close()

			target, err := actor.RemotePID(n.sys, cmd.String("to"))
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			replies := make(chan Text, 1)
			client := n.sys.Spawn(actor.ActorFunc(func(_ *actor.Context, msg actor.Message) {
				if t, ok := msg.(Text); ok {
					select {
					case replies <- t:
					default:
					}
				}
			}), "ping")

			w := cmd.Root().Writer
			timeout := cmd.Duration("timeout")
			for i := range cmd.Int("count") {
				text := Text(fmt.Sprintf("%s %d", cmd.String("text"), i))
				start := time.Now()
				n.sys.SendWithSender(target, text, client)

				select {
				case reply := <-replies:
					fmt.Fprintf(w, "reply from %s: %q time=%s\n", target, string(reply), time.Since(start))
				case <-time.After(timeout):
					fmt.Fprintf(w, "no reply from %s within %s\n", target, timeout)
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			stats := n.remote.Stats()
			fmt.Fprintf(w, "frames out=%d in=%d, bytes out=%d in=%d\n",
				stats.FramesOut, stats.FramesIn, stats.BytesOut, stats.BytesIn)
			return nil
		},
	}
}
