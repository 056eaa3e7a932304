package global

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type AppConfig struct {
	NodeID  int64         `koanf:"node_id"` // snowflake node (0~1023)
	Server  ServerConfig  `koanf:"server"`
	Auth    AuthConfig    `koanf:"auth"`
	Gateway GatewayConfig `koanf:"gateway"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Redis   RedisConfig   `koanf:"redis"`
	Nats    NatsConfig    `koanf:"nats"`
	Kafka   KafkaConfig   `koanf:"kafka"`
	Upload  UploadConfig  `koanf:"upload"`
	Log     LogConfig     `koanf:"log"`
}

type ServerConfig struct {
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
	BodyLimit   int64    `koanf:"body_limit"` // bytes; attachments travel inline as base64
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	// RequireSocketToken makes the gateway verify a `token` handshake param
	// against the claimed userId. Off by default: the handshake userId is trusted.
	RequireSocketToken bool `koanf:"require_socket_token"`
}

type GatewayConfig struct {
	SendQueue      int           `koanf:"send_queue"`
	PongWait       time.Duration `koanf:"pong_wait"`
	WriteWait      time.Duration `koanf:"write_wait"`
	KickSuperseded bool          `koanf:"kick_superseded"`
}

// MongoConfig 为空 URI 时使用内存存储
type MongoConfig struct {
	URI         string `koanf:"uri"`
	Database    string `koanf:"database"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	MaxPoolSize int    `koanf:"max_pool_size"`
}

type RedisConfig struct {
	Addr        string        `koanf:"addr"` // empty disables the presence mirror
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	PresenceTTL time.Duration `koanf:"presence_ttl"`
}

type NatsConfig struct {
	Servers []string `koanf:"servers"` // empty disables event publishing
	Name    string   `koanf:"name"`
	Subject string   `koanf:"subject"`
}

type KafkaConfig struct {
	Brokers     []string `koanf:"brokers"` // empty disables the kafka sink
	Topic       string   `koanf:"topic"`
	Compression string   `koanf:"compression"`
}

type UploadConfig struct {
	Dir       string `koanf:"dir"`
	PublicURL string `koanf:"public_url"` // prefix used to build attachment URLs
	MaxBytes  int64  `koanf:"max_bytes"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		NodeID: 100,
		Server: ServerConfig{
			Port:        3000,
			CORSOrigins: []string{"*"},
			BodyLimit:   10 << 20, // 10MB
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Gateway: GatewayConfig{
			SendQueue: 256,
			PongWait:  60 * time.Second,
			WriteWait: 10 * time.Second,
		},
		Mongo: MongoConfig{
			Database:    "chatapp",
			MaxPoolSize: 20,
		},
		Redis: RedisConfig{
			PresenceTTL: 2 * time.Hour,
		},
		Nats: NatsConfig{
			Name:    "dmchat",
			Subject: "chat.message.created",
		},
		Kafka: KafkaConfig{
			Topic:       "chat.message.created",
			Compression: "snappy",
		},
		Upload: UploadConfig{
			Dir:       "./uploads",
			PublicURL: "/uploads",
			MaxBytes:  8 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the config from defaults, then an optional YAML file, then env vars.
func Load() (*AppConfig, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML file; an empty path skips the file layer.
func LoadFile(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("node id %d out of range 0~1023", c.NodeID)
	}
	if c.Gateway.SendQueue <= 0 {
		return fmt.Errorf("gateway send queue must be positive")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("upload dir is required")
	}
	return nil
}

// ConfigFile returns the config file Load would read, or "" when there is none.
func ConfigFile() string { return findConfigFile() }

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"node_id":              "node_id",
	"port":                 "server.port",
	"cors_origins":         "server.cors_origins",
	"body_limit":           "server.body_limit",
	"jwt_secret":           "auth.jwt_secret",
	"token_ttl":            "auth.token_ttl",
	"require_socket_token": "auth.require_socket_token",
	"gateway_send_queue":   "gateway.send_queue",
	"gateway_pong_wait":    "gateway.pong_wait",
	"gateway_write_wait":   "gateway.write_wait",
	"kick_superseded":      "gateway.kick_superseded",
	"mongodb_uri":          "mongo.uri",
	"mongodb_database":     "mongo.database",
	"mongodb_username":     "mongo.username",
	"mongodb_password":     "mongo.password",
	"mongodb_pool_size":    "mongo.max_pool_size",
	"redis_addr":           "redis.addr",
	"redis_password":       "redis.password",
	"redis_db":             "redis.db",
	"presence_ttl":         "redis.presence_ttl",
	"nats_servers":         "nats.servers",
	"nats_name":            "nats.name",
	"nats_subject":         "nats.subject",
	"kafka_brokers":        "kafka.brokers",
	"kafka_topic":          "kafka.topic",
	"kafka_compression":    "kafka.compression",
	"upload_dir":           "upload.dir",
	"upload_public_url":    "upload.public_url",
	"upload_max_bytes":     "upload.max_bytes",
	"log_level":            "log.level",
}

// envTransformFunc maps known env vars onto config paths; unknown ones are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

var sliceConfigPaths = []string{"server.cors_origins", "nats.servers", "kafka.brokers"}

// splitSliceFields turns comma separated env values into string slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
