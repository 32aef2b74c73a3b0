package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // Часовой пояс офиса доступен и в distroless-образе

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации портала.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig описывает подключение к Redis (счетчики фолио и Pub/Sub сигналы).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Issuer         string        `mapstructure:"issuer"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`

	// Первый сотрудник со всеми scopes (создается при старте, если задан)
	BootstrapUser     string `mapstructure:"bootstrap_user"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`

	PublicKey  []byte
	PrivateKey []byte
}

// WorkflowConfig — настройки ядра заявок.
type WorkflowConfig struct {
	OfficePrefix  string        `mapstructure:"office_prefix"` // Префикс фолио: GAD-202601-0001
	OfficeName    string        `mapstructure:"office_name"`   // Заголовок в выдаваемых документах
	Timezone      string        `mapstructure:"timezone"`      // Месяц фолио и "сегодня" дашборда
	Storage       string        `mapstructure:"storage"`       // memory | postgres
	FolioBackend  string        `mapstructure:"folio_backend"` // memory | redis | postgres
	Renderer      string        `mapstructure:"renderer"`      // template | grpc
	RendererAddr  string        `mapstructure:"renderer_addr"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	LockShards    int           `mapstructure:"lock_shards"`

	// Надежность удаленного рендера
	RenderAttempts   uint          `mapstructure:"render_attempts"`
	CBMaxRequests    uint32        `mapstructure:"cb_max_requests"`
	CBInterval       time.Duration `mapstructure:"cb_interval"`
	CBTimeout        time.Duration `mapstructure:"cb_timeout"`
	RenderRatePerSec float64       `mapstructure:"render_rate_per_sec"`
	RenderBurst      int           `mapstructure:"render_burst"`
}

// Location возвращает часовой пояс офиса.
func (w WorkflowConfig) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("workflow.timezone %q: %w", w.Timezone, err)
	}
	return loc, nil
}

// JournalConfig — буфер глобального журнала действий.
type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type TrackingConfig struct {
	ExposePersonalData bool `mapstructure:"expose_personal_data"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// searchPaths заменяет каталоги поиска config.yaml по умолчанию.
func LoadConfig(searchPaths ...string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./configs"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	// 2. Переменные окружения: WORKFLOW_STORAGE=postgres перекроет workflow.storage
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Счетчик фолио по умолчанию живет там же, где заявки
	if cfg.Workflow.FolioBackend == "" {
		cfg.Workflow.FolioBackend = cfg.Workflow.Storage
	}

	// 6. Ключи из ENV (PEM целиком, для Docker/K8s) или из файла
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность бэкендов.
func (c *Config) Validate() error {
	w := c.Workflow
	switch w.Storage {
	case "memory", "postgres":
	default:
		return fmt.Errorf("workflow.storage must be memory or postgres, got %q", w.Storage)
	}
	switch w.FolioBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("workflow.folio_backend must be memory, redis or postgres, got %q", w.FolioBackend)
	}
	switch w.Renderer {
	case "template":
	case "grpc":
		if w.RendererAddr == "" {
			return errors.New("workflow.renderer_addr is required for grpc renderer")
		}
	default:
		return fmt.Errorf("workflow.renderer must be template or grpc, got %q", w.Renderer)
	}
	if (w.Storage == "postgres" || w.FolioBackend == "postgres") && c.Database.URL == "" {
		return errors.New("database.url is required for postgres backends")
	}
	if w.Storage == "memory" && w.FolioBackend == "postgres" {
		return errors.New("workflow.folio_backend=postgres requires workflow.storage=postgres")
	}
	// Счетчик в памяти после рестарта начнет с 1 и выдаст фолио, уже сохраненные в БД
	if w.Storage == "postgres" && w.FolioBackend == "memory" {
		return errors.New("workflow.folio_backend=memory cannot be used with workflow.storage=postgres")
	}
	if _, err := w.Location(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("auth.private_key_path", "")
	v.SetDefault("auth.issuer", "gad-tramites")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.bootstrap_user", "")
	v.SetDefault("auth.bootstrap_password", "")

	v.SetDefault("workflow.office_prefix", "GAD")
	v.SetDefault("workflow.office_name", "Gobierno Autónomo Descentralizado")
	v.SetDefault("workflow.timezone", "America/Guayaquil")
	v.SetDefault("workflow.storage", "memory")
	v.SetDefault("workflow.folio_backend", "") // пусто: как workflow.storage
	v.SetDefault("workflow.renderer", "template")
	v.SetDefault("workflow.renderer_addr", "")
	v.SetDefault("workflow.render_timeout", 10*time.Second)
	v.SetDefault("workflow.lock_shards", 128)
	v.SetDefault("workflow.render_attempts", 3)
	v.SetDefault("workflow.cb_max_requests", 3)
	v.SetDefault("workflow.cb_interval", time.Minute)
	v.SetDefault("workflow.cb_timeout", 30*time.Second)
	v.SetDefault("workflow.render_rate_per_sec", 20.0)
	v.SetDefault("workflow.render_burst", 5)

	v.SetDefault("journal.buffer_size", 1000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 1*time.Second)

	v.SetDefault("tracking.expose_personal_data", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("metrics.addr", ":9090")
}

// loadKeyResource — ключ из ENV (PEM целиком) или из файла по пути
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
