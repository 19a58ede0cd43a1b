package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/envelope"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/serial"
)

func pathCommand() *cli.Command {
	return &cli.Command{
		Name:      "path",
		Usage:     "encode an actor path and show its header bits",
		ArgsUsage: "<actor-path>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one actor path")
			}
			return describePath(cmd.Root().Writer, cmd.Args().First())
		},
	}
}

func describePath(w io.Writer, text string) error {
	p, err := address.ParsePath(text)
	if err != nil {
		return err
	}
	buf := serial.NewBuffer(serial.SizeHintOrZero(p))
	if err := address.Encode(p, buf); err != nil {
		return err
	}
	data := buf.Freeze()
	hdr, err := address.UnpackHeader(data.At(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "path:     %s\n", p)
	fmt.Fprintf(w, "header:   0x%02x (type=%s family=%s protocol=%s)\n",
		data.At(0), hdr.PathType, hdr.Family, hdr.Protocol)
	fmt.Fprintf(w, "length:   %d\n", data.Len())
	fmt.Fprintf(w, "encoded:  %s\n", data)
	return nil
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "build a wire frame carrying a builtin message",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "src", Usage: "source actor path", Required: true},
			&cli.StringFlag{Name: "dst", Usage: "destination actor path", Required: true},
			&cli.IntFlag{Name: "u64", Usage: "send a u64 payload", Value: -1},
			&cli.StringFlag{Name: "str", Usage: "send a string payload"},
			&cli.BoolFlag{Name: "local", Usage: "build a local receive envelope instead of a frame"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			src, err := address.ParsePath(cmd.String("src"))
			if err != nil {
				return fmt.Errorf("--src: %w", err)
			}
			dst, err := address.ParsePath(cmd.String("dst"))
			if err != nil {
				return fmt.Errorf("--dst: %w", err)
			}

			var msg serial.Serialisable = serial.Unit{}
			switch {
			case cmd.IsSet("str"):
				msg = serial.Str(cmd.String("str"))
			case cmd.Int("u64") >= 0:
				msg = serial.U64(cmd.Int("u64"))
			}

			w := cmd.Root().Writer
			if cmd.Bool("local") {
				env, err := envelope.SerialiseToRecvEnvelope(src, dst, msg)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "ser_id:  %d\n", env.SerID)
				fmt.Fprintf(w, "payload: %s\n", env.Data)
				return nil
			}

			frame, err := envelope.SerialiseMsg(src, dst, msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, frame)
			return nil
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "parse a hex encoded wire frame",
		ArgsUsage: "<hex>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one hex frame")
			}
			return describeFrame(cmd.Root().Writer, cmd.Args().First())
		},
	}
}

func describeFrame(w io.Writer, text string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	env, err := envelope.DeserialiseMsgBytes(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "src:     %s\n", env.Src)
	fmt.Fprintf(w, "dst:     %s\n", env.Dst)
	fmt.Fprintf(w, "ser_id:  %d\n", env.SerID)
	fmt.Fprintf(w, "payload: %s\n", env.Data)

	switch env.SerID {
	case serial.SerIDUnit:
		fmt.Fprintln(w, "value:   ()")
	case serial.SerIDU64:
		if v, err := envelope.DecodeAs(env, serial.U64Deserialiser); err == nil {
			fmt.Fprintf(w, "value:   %d\n", v)
		}
	case serial.SerIDStr, textSerID:
		if v, err := envelope.DecodeAs(env, serial.StrDeserialiser); err == nil {
			fmt.Fprintf(w, "value:   %q\n", string(v))
		}
	}
	return nil
}
