package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	Drive   DriveConfig   `mapstructure:"drive"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

type DriveConfig struct {
	CredentialsFile   string        `mapstructure:"credentials_file"`
	CredentialsJSON   string        `mapstructure:"credentials_json"`
	RootFolderName    string        `mapstructure:"root_folder_name"`
	RootFolderID      string        `mapstructure:"root_folder_id"`
	PageSize          int64         `mapstructure:"page_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	Endpoint          string        `mapstructure:"endpoint"`
}

type SyncConfig struct {
	FolderDelay  time.Duration `mapstructure:"folder_delay"`
	Schedule     string        `mapstructure:"schedule"`
	Prefetch     bool          `mapstructure:"prefetch"`
	CacheCleanup string        `mapstructure:"cache_cleanup"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.source", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("storage.path", "./data/cache")
	v.SetDefault("storage.enabled", true)
	v.SetDefault("drive.credentials_file", "")
	v.SetDefault("drive.credentials_json", "")
	v.SetDefault("drive.root_folder_name", "RONIN_CMS")
	v.SetDefault("drive.root_folder_id", "")
	v.SetDefault("drive.page_size", 1000)
	v.SetDefault("drive.requests_per_second", 10)
	v.SetDefault("drive.burst", 5)
	v.SetDefault("drive.max_retries", 5)
	v.SetDefault("drive.initial_backoff", "1s")
	v.SetDefault("drive.max_backoff", "32s")
	v.SetDefault("drive.endpoint", "")
	v.SetDefault("sync.folder_delay", "500ms")
	v.SetDefault("sync.schedule", "")
	v.SetDefault("sync.prefetch", false)
	v.SetDefault("sync.cache_cleanup", "after_commit")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
}

func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given file, or settings.yml from ./configs or /configs
// when path is empty. Environment variables (DB_SOURCE, DRIVE_PAGE_SIZE, ...)
// override file values.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
