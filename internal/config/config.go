package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yml"
	EnvPrefix   = "TASKBOARD"
)

const (
	RepositoryFile     = "file"
	RepositoryInMemory = "inmemory"
	RepositoryPostgres = "postgres"
	RepositoryRedis    = "redis"
	RepositorySQLite   = "sqlite"
)

var (
	repositoryTypes = []string{RepositoryFile, RepositoryInMemory, RepositoryPostgres, RepositoryRedis, RepositorySQLite}
	decodePolicies  = []string{"forgiving", "strict", "backup"}
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Backup     BackupConfig     `yaml:"backup"`
	HTTP       HTTPConfig       `yaml:"http"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // file | inmemory | postgres | redis | sqlite
}

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	DecodePolicy string `yaml:"decode_policy"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Migrate        bool          `yaml:"migrate"`
}

type RedisConfig struct {
	URL            string        `yaml:"url"`
	KeyPrefix      string        `yaml:"key_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type HTTPConfig struct {
	RateLimitRPM   int      `yaml:"rate_limit_rpm"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Repository: RepositoryConfig{Type: RepositoryFile},
		Storage: StorageConfig{
			Dir:          "data",
			DecodePolicy: "forgiving",
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			ConnectTimeout: 30 * time.Second,
			Migrate:        true,
		},
		Redis: RedisConfig{
			KeyPrefix:      "taskboard:",
			ConnectTimeout: 30 * time.Second,
		},
		SQLite: SQLiteConfig{Path: "data/taskboard.db"},
		Backup: BackupConfig{
			Enabled:  false,
			Interval: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			RateLimitRPM:   100,
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load читает YAML поверх значений по умолчанию, затем применяет TASKBOARD_* из окружения.
// Отсутствующий файл не ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		// пустой файл
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("ошибка парсинга %s: %w", path, err)
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// overlay ищет значение ключа в окружении и приводит его через cast
func overlay[T any](v *viper.Viper, key string, target *T, convert func(any) (T, error)) error {
	if err := v.BindEnv(key, envName(key)); err != nil {
		return fmt.Errorf("привязка %s: %w", envName(key), err)
	}
	if !v.IsSet(key) {
		return nil
	}
	value, err := convert(v.Get(key))
	if err != nil {
		return fmt.Errorf("%s: %w", envName(key), err)
	}
	*target = value
	return nil
}

func applyEnv(cfg *Config) error {
	v := viper.New()

	strs := map[string]*string{
		"server.host":           &cfg.Server.Host,
		"server.port":           &cfg.Server.Port,
		"repository.type":       &cfg.Repository.Type,
		"storage.dir":           &cfg.Storage.Dir,
		"storage.decode_policy": &cfg.Storage.DecodePolicy,
		"database.url":          &cfg.Database.URL,
		"redis.url":             &cfg.Redis.URL,
		"redis.key_prefix":      &cfg.Redis.KeyPrefix,
		"sqlite.path":           &cfg.SQLite.Path,
	}
	ints := map[string]*int{
		"database.max_connections": &cfg.Database.MaxConnections,
		"database.min_connections": &cfg.Database.MinConnections,
		"http.rate_limit_rpm":      &cfg.HTTP.RateLimitRPM,
	}
	durations := map[string]*time.Duration{
		"server.read_timeout":      &cfg.Server.ReadTimeout,
		"server.write_timeout":     &cfg.Server.WriteTimeout,
		"server.shutdown_timeout":  &cfg.Server.ShutdownTimeout,
		"server.request_timeout":   &cfg.Server.RequestTimeout,
		"database.idle_timeout":    &cfg.Database.IdleTimeout,
		"database.connect_timeout": &cfg.Database.ConnectTimeout,
		"redis.connect_timeout":    &cfg.Redis.ConnectTimeout,
		"backup.interval":          &cfg.Backup.Interval,
	}
	bools := map[string]*bool{
		"logging.development": &cfg.Logging.Development,
		"database.migrate":    &cfg.Database.Migrate,
		"backup.enabled":      &cfg.Backup.Enabled,
	}

	for key, target := range strs {
		if err := overlay(v, key, target, cast.ToStringE); err != nil {
			return err
		}
	}
	for key, target := range ints {
		if err := overlay(v, key, target, cast.ToIntE); err != nil {
			return err
		}
	}
	for key, target := range durations {
		if err := overlay(v, key, target, cast.ToDurationE); err != nil {
			return err
		}
	}
	for key, target := range bools {
		if err := overlay(v, key, target, cast.ToBoolE); err != nil {
			return err
		}
	}

	// список через запятую: TASKBOARD_HTTP_ALLOWED_ORIGINS=http://a,http://b
	return overlay(v, "http.allowed_origins", &cfg.HTTP.AllowedOrigins, splitOrigins)
}

func splitOrigins(value any) ([]string, error) {
	raw, err := cast.ToStringE(value)
	if err != nil {
		return nil, err
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins, nil
}

func (c *Config) Validate() error {
	if !slices.Contains(repositoryTypes, c.Repository.Type) {
		return fmt.Errorf("repository.type: неизвестный тип %q (ожидается %s)", c.Repository.Type, strings.Join(repositoryTypes, " | "))
	}

	if c.Storage.DecodePolicy != "" && !slices.Contains(decodePolicies, c.Storage.DecodePolicy) {
		return fmt.Errorf("storage.decode_policy: неизвестная политика %q (ожидается %s)", c.Storage.DecodePolicy, strings.Join(decodePolicies, " | "))
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port: неверный порт %q", c.Server.Port)
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
	}
	for name, value := range timeouts {
		if value <= 0 {
			return fmt.Errorf("%s: должен быть положительным", name)
		}
	}

	switch c.Repository.Type {
	case RepositoryFile:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir: не задан каталог для файлового хранилища")
		}
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url: обязателен для postgres")
		}
		if c.Database.MaxConnections < 1 || c.Database.MinConnections < 0 || c.Database.MinConnections > c.Database.MaxConnections {
			return fmt.Errorf("database: неверные лимиты соединений min=%d max=%d", c.Database.MinConnections, c.Database.MaxConnections)
		}
	case RepositoryRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url: обязателен для redis")
		}
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path: обязателен для sqlite")
		}
	}

	if c.Backup.Enabled && c.Backup.Interval <= 0 {
		return errors.New("backup.interval: должен быть положительным")
	}

	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
