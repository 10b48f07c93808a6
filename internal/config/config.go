package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ytget/yt-multiloader/internal/extract"
	"github.com/ytget/yt-multiloader/internal/platform"
	"github.com/ytget/yt-multiloader/internal/validate"
)

// Environment
const (
	EnvPrefix  = "YTML"
	DotEnvFile = ".env"
)

// Config keys
const (
	KeyOutputDir     = "output_dir"
	KeyMaxParallel   = "max_parallel"
	KeyFormat        = "format"
	KeyExtractor     = "extractor"
	KeyMetadataCache = "metadata_cache"
	KeyMetadataRate  = "metadata_rate"
	KeyEventBuffer   = "event_buffer"
	KeyLogLevel      = "log_level"
	KeyLogFile       = "log_file"
	KeyLogFileSize   = "log_file_size"
	KeyListen        = "listen"
	KeyURLs          = "urls"
)

// Default values
const (
	DefaultMaxParallel   = 0
	DefaultFormat        = extract.DefaultFormat
	DefaultExtractor     = extract.KindYtDlp
	DefaultMetadataCache = extract.DefaultCacheSize
	DefaultMetadataRate  = 0.0
	DefaultEventBuffer   = 256
	DefaultLogLevel      = "info"
	DefaultLogFileSize   = 10 // megabytes
	MaxParallelLimit     = 32
	fallbackOutputDir    = "downloads"
)

// Config is the runtime configuration shared by all front-ends
type Config struct {
	OutputDir     string   `mapstructure:"output_dir" validate:"required"`
	MaxParallel   int      `mapstructure:"max_parallel" validate:"gte=0,lte=32"`
	Format        string   `mapstructure:"format" validate:"required"`
	Extractor     string   `mapstructure:"extractor" validate:"oneof=ytdlp native"`
	MetadataCache int      `mapstructure:"metadata_cache" validate:"gte=0"`
	MetadataRate  float64  `mapstructure:"metadata_rate" validate:"gte=0"`
	EventBuffer   int      `mapstructure:"event_buffer" validate:"gte=1"`
	LogLevel      string   `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFile       string   `mapstructure:"log_file"`
	LogFileSize   int      `mapstructure:"log_file_size" validate:"gte=1"`
	Listen        string   `mapstructure:"listen" validate:"omitempty,hostname_port"`
	URLs          []string `mapstructure:"urls" validate:"dive,video_url"`
}

// ExtractOptions returns the extraction client settings
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		Kind:          c.Extractor,
		Format:        c.Format,
		CacheSize:     c.MetadataCache,
		RatePerSecond: c.MetadataRate,
	}
}

// RegisterFlags defines the command line flags understood by Load
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	fs.StringP(flagName(KeyOutputDir), "o", "", "directory downloads are written to")
	fs.IntP(flagName(KeyMaxParallel), "j", DefaultMaxParallel, "max concurrent transfers, 0 for unbounded")
	fs.String(flagName(KeyFormat), DefaultFormat, "yt-dlp format selector")
	fs.String(flagName(KeyExtractor), DefaultExtractor, "extraction backend: ytdlp or native")
	fs.Int(flagName(KeyMetadataCache), DefaultMetadataCache, "metadata cache entries, 0 disables")
	fs.Float64(flagName(KeyMetadataRate), DefaultMetadataRate, "metadata requests per second, 0 disables")
	fs.Int(flagName(KeyEventBuffer), DefaultEventBuffer, "event channel buffer size")
	fs.String(flagName(KeyLogLevel), DefaultLogLevel, "log level")
	fs.String(flagName(KeyLogFile), "", "rotating JSON log file")
	fs.Int(flagName(KeyLogFileSize), DefaultLogFileSize, "log file size in megabytes before rotation")
	fs.String(flagName(KeyListen), "", "serve the HTTP API on this address")
}

// Load reads configuration from defaults, an optional .env file, the config
// file at path, YTML_* environment variables and the given flags, in
// increasing order of precedence. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir()
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutputDir, "")
	v.SetDefault(KeyMaxParallel, DefaultMaxParallel)
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyExtractor, DefaultExtractor)
	v.SetDefault(KeyMetadataCache, DefaultMetadataCache)
	v.SetDefault(KeyMetadataRate, DefaultMetadataRate)
	v.SetDefault(KeyEventBuffer, DefaultEventBuffer)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogFileSize, DefaultLogFileSize)
	v.SetDefault(KeyListen, "")
	v.SetDefault(KeyURLs, []string{})
}

// bindFlags maps kebab-case flags onto snake_case keys
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range v.AllKeys() {
		f := flags.Lookup(flagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// defaultOutputDir is the user's Downloads directory, or a temp location
// when the home directory cannot be resolved
func defaultOutputDir() string {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), fallbackOutputDir)
	}
	return dir
}
