// wirectl 线路编码与节点的命令行工具
//
//	wirectl path tcp://127.0.0.1:7000/svc/worker
//	wirectl encode --src tcp://127.0.0.1:1/a --dst tcp://127.0.0.1:2/b --u64 7
//	wirectl decode 09007f000001000100...
//	wirectl serve --config node.yaml
//	wirectl ping --set node.port=7001 --to tcp://127.0.0.1:7000/echo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "wirectl",
		Usage: "inspect actor wire frames and run echo nodes",
		Commands: []*cli.Command{
			pathCommand(),
			encodeCommand(),
			decodeCommand(),
			serveCommand(),
			pingCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
