package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type serverConfig struct {
	Port        int    `koanf:"port" validate:"required"`
	Mode        string `koanf:"mode" validate:"required"`
	Concurrency int    `koanf:"concurrency"`
	BodyLimit   int    `koanf:"body_limit"`
	AppName     string `koanf:"app_name"`
}

type logLevel string

const (
	Debug logLevel = "debug"
	Info  logLevel = "info"
	Warn  logLevel = "warn"
	Error logLevel = "error"
	Fatal logLevel = "fatal"
	Panic logLevel = "panic"
)

type Module string

const (
	ModuleServer    Module = "server"
	ModuleSetting   Module = "setting"
	ModuleEngine    Module = "engine"
	ModuleClassify  Module = "classify"
	ModuleCondense  Module = "condense"
	ModuleRetriever Module = "retriever"
	ModulePrompt    Module = "prompt"
	ModuleContext   Module = "context"
	ModuleMilvus    Module = "milvus"
	ModuleOpenAI    Module = "openai"
	ModuleDatabase  Module = "database"
	ModuleChat      Module = "chat"
	ModuleIngest    Module = "ingest"
	ModuleS3        Module = "s3"
)

type databaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxLifetime  int    `koanf:"max_lifetime"`
}

type openaiConfig struct {
	Key            string `koanf:"key" validate:"required"`
	Provider       string `koanf:"provider" validate:"oneof=openai azure"`
	AzureEndpoint  string `koanf:"azure_endpoint"`
	ChatModel      string `koanf:"chat_model" validate:"required"`
	ClassifyModel  string `koanf:"classify_model" validate:"required"`
	EmbeddingModel string `koanf:"embedding_model" validate:"required"`
	EmbeddingDim   int    `koanf:"embedding_dim" validate:"required"`
}

type corsConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
	AllowMethods []string `koanf:"allow_methods"`
	AllowHeaders []string `koanf:"allow_headers"`
}

type milvusConfig struct {
	Address    string `koanf:"address" validate:"required"`
	Collection string `koanf:"collection" validate:"required"`
	MetricType string `koanf:"metric_type"`
	SearchEf   int    `koanf:"search_ef"`
}

// chatConfig holds the per-turn pipeline policy. KeepRecentTurns is the
// number of explicit turns kept alongside a non-empty condensed history.
type chatConfig struct {
	KeepRecentTurns        int      `koanf:"keep_recent_turns"`
	ClassifyReservedTokens int      `koanf:"classify_reserved_tokens"`
	CondenseReservedTokens int      `koanf:"condense_reserved_tokens"`
	GenerateReservedTokens int      `koanf:"generate_reserved_tokens"`
	PlatformCourseKey      string   `koanf:"platform_course_key"`
	AccessKeys             []string `koanf:"access_keys"`
}

type contextStoreConfig struct {
	// BaseURL is either a local directory or an s3://bucket/prefix URL.
	BaseURL string `koanf:"base_url" validate:"required"`
}

type s3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type config struct {
	Server       serverConfig       `koanf:"server"`
	Database     databaseConfig     `koanf:"database"`
	OpenAI       openaiConfig       `koanf:"openai"`
	LogLevel     logLevel           `koanf:"log_level"`
	Dns          string             `koanf:"dns"`
	S3           s3Config           `koanf:"s3"`
	Cors         corsConfig         `koanf:"cors"`
	Milvus       milvusConfig       `koanf:"milvus"`
	Chat         chatConfig         `koanf:"chat"`
	ContextStore contextStoreConfig `koanf:"context_store"`
}

func buildMySQLDSN(cfg databaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

var defaultConfig = config{
	Server: serverConfig{
		Port:    8000,
		Mode:    "release",
		AppName: "ai-course-tutor",
	},
	Database: databaseConfig{
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Name:         "tutor",
		MaxIdleConns: 4,
		MaxOpenConns: 16,
		MaxLifetime:  30,
	},
	OpenAI: openaiConfig{
		Provider:       "openai",
		ChatModel:      "gpt-4o",
		ClassifyModel:  "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		EmbeddingDim:   1536,
	},
	LogLevel: Info,
	S3: s3Config{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
	},
	Milvus: milvusConfig{
		Address:    "localhost:19530",
		Collection: "course_chunks",
		MetricType: "IP",
		SearchEf:   64,
	},
	Chat: chatConfig{
		KeepRecentTurns:        1,
		ClassifyReservedTokens: 1000,
		CondenseReservedTokens: 2000,
		GenerateReservedTokens: 2000,
		PlatformCourseKey:      "platform-docs",
	},
	ContextStore: contextStoreConfig{
		BaseURL: "./ai-context",
	},
}

var (
	Cfg         = defaultConfig
	initMu      sync.Mutex
	initialized bool
)

// Init loads configuration from the given YAML file (a missing file keeps
// the defaults) and APP_-prefixed environment variables. A second call is
// a programming error.
func Init(path string) error {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return fmt.Errorf("%v: already initialized", ModuleSetting)
	}

	k := koanf.New(".")
	Cfg = defaultConfig

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%v: load %s: %w", ModuleSetting, path, err)
	}

	// env APP_SERVER_PORT -> server.port
	if err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "APP_")), "_", ".")
	}), nil); err != nil {
		return fmt.Errorf("%v: load env: %w", ModuleSetting, err)
	}

	if err := k.Unmarshal("", &Cfg); err != nil {
		return fmt.Errorf("%v: unmarshal config: %w", ModuleSetting, err)
	}

	if Cfg.Dns == "" && Cfg.Database.Host != "" {
		Cfg.Dns = buildMySQLDSN(Cfg.Database)
	}

	validate := validator.New()
	if err := validate.Struct(Cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("%v: config validation failed:\n", ModuleSetting))
			for _, e := range errs {
				sb.WriteString(fmt.Sprintf("  %s: failed '%s' (value: %v)\n", e.Field(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("%s", sb.String())
		}
		return fmt.Errorf("%v: config validation failed: %w", ModuleSetting, err)
	}

	initialized = true
	return nil
}
