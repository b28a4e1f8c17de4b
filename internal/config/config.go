package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Режимы хранения журнала запросов.
const (
	ModeDatabase = "database"
	ModeFile     = "file"
	ModeMemory   = "memory"
)

// Config хранит конфигурацию бота
type Config struct {
	BotToken          string        `json:"bot_token"`
	Chat              string        `json:"chat"`
	SessionName       string        `json:"session_name"`
	ServerAddress     string        `json:"server_address"`
	GRPCAddress       string        `json:"grpc_address"`
	APISecret         string        `json:"api_secret"`
	DatabaseDSN       string        `json:"database_dsn"`
	FileStoragePath   string        `json:"file_storage_path"`
	MigrationsEnabled bool          `json:"pg_migrations_enabled"`
	GateDelay         time.Duration `json:"-"`
	TokenOffset       time.Duration `json:"-"`
	HTTPTimeout       time.Duration `json:"-"`
	UserAgent         string        `json:"user_agent"`
	GateBase          string        `json:"gate_base"`
	GateReferer       string        `json:"gate_referer"`
	RateLimit         float64       `json:"rate_limit"`
	ProxyURL          string        `json:"proxy_url"`
	Mode              string        `json:"-"`
}

// DefaultUserAgent повторяет браузер, которому доверяют шортенеры.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36"

func setDefaults(v *viper.Viper) {
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("CHAT", "")
	v.SetDefault("SESSION_NAME", "psabot")
	v.SetDefault("SERVER_ADDRESS", "localhost:8080")
	v.SetDefault("GRPC_ADDRESS", "")
	v.SetDefault("API_SECRET", "")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("FILE_STORAGE_PATH", "")
	v.SetDefault("PG_MIGRATIONS_ENABLED", true)
	v.SetDefault("GATE_DELAY", 7*time.Second)
	v.SetDefault("TOKEN_OFFSET", 4*time.Minute)
	v.SetDefault("HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("USER_AGENT", DefaultUserAgent)
	v.SetDefault("GATE_BASE", "https://try2link.com")
	v.SetDefault("GATE_REFERER", "https://newforex.online/")
	v.SetDefault("RATE_LIMIT", 0.0)
	v.SetDefault("PROXY_URL", "")
}

// NewConfig инициализирует конфигурацию из окружения, .env, JSON-файла и аргументов командной строки
func NewConfig() *Config {
	cfg, err := Load(viper.New(), flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Printf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

// Load собирает конфигурацию. Приоритет: флаги, затем окружение, затем JSON-файл, затем значения по умолчанию.
func Load(v *viper.Viper, fs *flag.FlagSet, args []string) (*Config, error) {
	// Значения по умолчанию живут в отдельном viper, иначе IsSet не отличит их от окружения
	defaults := viper.New()
	setDefaults(defaults)

	v.AutomaticEnv()

	// Читаем .env, если есть (не переопределяет переменные окружения!)
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	serverAddress := fs.String("a", "", "control API address")
	grpcAddress := fs.String("g", "", "gRPC health address")
	databaseDSN := fs.String("d", "", "PostgreSQL DSN")
	fileStoragePath := fs.String("f", "", "journal file path (JSON lines)")
	chat := fs.String("chat", "", "chat id or @username whose members may use the bot")
	gateDelay := fs.Duration("delay", 0, "dwell time before submitting a gate form")
	configPath := fs.String("c", "", "path to JSON config file")
	fs.StringVar(configPath, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if *configPath == "" {
		*configPath = v.GetString("CONFIG")
	}

	cfg := &Config{
		SessionName:       defaults.GetString("SESSION_NAME"),
		ServerAddress:     defaults.GetString("SERVER_ADDRESS"),
		MigrationsEnabled: defaults.GetBool("PG_MIGRATIONS_ENABLED"),
		GateDelay:         defaults.GetDuration("GATE_DELAY"),
		TokenOffset:       defaults.GetDuration("TOKEN_OFFSET"),
		HTTPTimeout:       defaults.GetDuration("HTTP_TIMEOUT"),
		UserAgent:         defaults.GetString("USER_AGENT"),
		GateBase:          defaults.GetString("GATE_BASE"),
		GateReferer:       defaults.GetString("GATE_REFERER"),
		RateLimit:         defaults.GetFloat64("RATE_LIMIT"),
	}
	// JSON перекрывает только те ключи, которые в нём есть
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Printf("Не удалось прочитать JSON-файл конфигурации %q: %v", *configPath, err)
		} else if err := json.Unmarshal(data, cfg); err != nil {
			log.Printf("Ошибка разбора JSON-файла конфигурации: %v", err)
		}
	}

	// Окружение и .env перекрывают JSON; пустые переменные viper считает незаданными
	override := func(key string, target *string) {
		if v.IsSet(key) {
			*target = v.GetString(key)
		}
	}
	override("BOT_TOKEN", &cfg.BotToken)
	override("CHAT", &cfg.Chat)
	override("SESSION_NAME", &cfg.SessionName)
	override("SERVER_ADDRESS", &cfg.ServerAddress)
	override("GRPC_ADDRESS", &cfg.GRPCAddress)
	override("API_SECRET", &cfg.APISecret)
	override("DATABASE_DSN", &cfg.DatabaseDSN)
	override("FILE_STORAGE_PATH", &cfg.FileStoragePath)
	override("USER_AGENT", &cfg.UserAgent)
	override("GATE_BASE", &cfg.GateBase)
	override("GATE_REFERER", &cfg.GateReferer)
	override("PROXY_URL", &cfg.ProxyURL)
	if v.IsSet("PG_MIGRATIONS_ENABLED") {
		cfg.MigrationsEnabled = v.GetBool("PG_MIGRATIONS_ENABLED")
	}
	if v.IsSet("GATE_DELAY") {
		cfg.GateDelay = v.GetDuration("GATE_DELAY")
	}
	if v.IsSet("TOKEN_OFFSET") {
		cfg.TokenOffset = v.GetDuration("TOKEN_OFFSET")
	}
	if v.IsSet("HTTP_TIMEOUT") {
		cfg.HTTPTimeout = v.GetDuration("HTTP_TIMEOUT")
	}
	if v.IsSet("RATE_LIMIT") {
		cfg.RateLimit = v.GetFloat64("RATE_LIMIT")
	}

	if *serverAddress != "" {
		cfg.ServerAddress = *serverAddress
	}
	if *grpcAddress != "" {
		cfg.GRPCAddress = *grpcAddress
	}
	if *databaseDSN != "" {
		cfg.DatabaseDSN = *databaseDSN
	}
	if *fileStoragePath != "" {
		cfg.FileStoragePath = *fileStoragePath
	}
	if *chat != "" {
		cfg.Chat = *chat
	}
	if *gateDelay > 0 {
		cfg.GateDelay = *gateDelay
	}

	// Определяем режим работы журнала
	switch {
	case cfg.DatabaseDSN != "":
		cfg.Mode = ModeDatabase
	case cfg.FileStoragePath != "":
		cfg.Mode = ModeFile
	default:
		cfg.Mode = ModeMemory
	}

	log.Printf("Инициализация конфигурации: SessionName=%s", cfg.SessionName)
	log.Printf("Инициализация конфигурации: ServerAddress=%s", cfg.ServerAddress)
	log.Printf("Инициализация конфигурации: Mode=%s", cfg.Mode)
	log.Printf("Инициализация конфигурации: GateDelay=%s", cfg.GateDelay)

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if cfg.BotToken == "" {
		return errors.New("токен бота не может быть пустым")
	}
	if cfg.Chat == "" {
		return errors.New("чат для проверки доступа не может быть пустым")
	}
	if cfg.GateBase == "" {
		return errors.New("адрес шортенера не может быть пустым")
	}
	if cfg.GateDelay < 0 || cfg.TokenOffset < 0 {
		return fmt.Errorf("задержки не могут быть отрицательными: delay=%s offset=%s", cfg.GateDelay, cfg.TokenOffset)
	}
	return nil
}
