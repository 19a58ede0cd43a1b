// Package config 加载节点配置
//
// 配置按以下顺序叠加，后者覆盖前者：
//  1. 内置默认值（[Default]）
//  2. 配置文件，按扩展名选择 YAML 或 JSON 解析器
//  3. 命令行等来源的键值覆盖，键使用 "." 分隔，例如 "node.port"
//
// 示例文件：
//
//	node:
//	  protocol: tcp
//	  host: 10.0.0.1
//	  port: 7000
//	transport:
//	  max_frame_size: 1048576
//	  dial_timeout: 3s
//	log:
//	  level: debug
//	  format: json
package config

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/transport"
)

// Config 节点配置
type Config struct {
	Node      NodeConfig      `koanf:"node"`
	Transport TransportConfig `koanf:"transport"`
	Log       LogConfig       `koanf:"log"`
}

// NodeConfig 系统路径
type NodeConfig struct {
	// Name 系统名称，仅用于日志
	Name string `koanf:"name"`
	// Protocol local / tcp / ws
	Protocol string `koanf:"protocol"`
	// Host IP 字面量或域名
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// TransportConfig 传输参数
type TransportConfig struct {
	MaxFrameSize int           `koanf:"max_frame_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
}

// LogConfig 日志参数
type LogConfig struct {
	// Level debug / info / warn / error
	Level string `koanf:"level"`
	// Format text / json
	Format string `koanf:"format"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Node: NodeConfig{
			Name:     "wire",
			Protocol: address.ProtocolTCP.String(),
			Host:     "127.0.0.1",
			Port:     7000,
		},
		Transport: TransportConfig{
			MaxFrameSize: transport.DefaultMaxFrameSize,
			DialTimeout:  5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 叠加默认值、配置文件（path 为空时跳过）与覆盖项
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return finish(k, overrides)
}

// LoadYAML 从内存中的 YAML 文本加载
func LoadYAML(data []byte, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return finish(k, overrides)
}

func finish(k *koanf.Koanf, overrides map[string]any) (*Config, error) {
	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Parser()
	}
	return yaml.Parser()
}

// Validate 检查配置能否构成合法的系统路径与传输
func (c *Config) Validate() error {
	if _, err := c.SystemPath(); err != nil {
		return err
	}
	if c.Transport.MaxFrameSize < 0 {
		return fmt.Errorf("transport.max_frame_size must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// SystemPath 由 node 段构造系统路径
func (c *Config) SystemPath() (address.SystemPath, error) {
	proto, err := address.ParseProtocol(c.Node.Protocol)
	if err != nil {
		return address.SystemPath{}, fmt.Errorf("node.protocol: %w", err)
	}
	if proto == address.ProtocolUDP {
		return address.SystemPath{}, fmt.Errorf("node.protocol: udp transport is not available")
	}
	if c.Node.Port < 0 || c.Node.Port > 0xFFFF {
		return address.SystemPath{}, fmt.Errorf("node.port: %d out of range", c.Node.Port)
	}
	if c.Node.Host == "" {
		return address.SystemPath{}, fmt.Errorf("node.host is required")
	}
	return address.ParseSystemPath(fmt.Sprintf("%s://%s", proto, hostPort(c.Node.Host, c.Node.Port)))
}

func hostPort(host string, port int) string {
	if strings.Contains(host, ":") {
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// TransportOptions 传输选项
func (c *Config) TransportOptions(logger *slog.Logger) transport.Options {
	return transport.Options{
		MaxFrameSize: c.Transport.MaxFrameSize,
		DialTimeout:  c.Transport.DialTimeout,
		Logger:       logger,
	}
}

// NewTransport 按协议创建传输
func (c *Config) NewTransport(logger *slog.Logger) (transport.Transport, error) {
	sys, err := c.SystemPath()
	if err != nil {
		return nil, err
	}
	switch sys.Protocol {
	case address.ProtocolLocal:
		return transport.NewInMemory(sys), nil
	case address.ProtocolTCP:
		return transport.NewTCP(sys, c.TransportOptions(logger)), nil
	case address.ProtocolWS:
		return transport.NewWebSocket(sys, c.TransportOptions(logger)), nil
	default:
		return nil, fmt.Errorf("no transport for protocol %s", sys.Protocol)
	}
}

// NewLogger 按日志配置创建 slog.Logger
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
