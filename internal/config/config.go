package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/semmidev/daydump/internal/domain"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Name          string        `mapstructure:"name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Tables        []TableConfig `mapstructure:"tables"`
	Verbose       bool          `mapstructure:"verbose"`
	Preflight     bool          `mapstructure:"preflight"`
	MysqldumpPath string        `mapstructure:"mysqldump_path"`
}

type TableConfig struct {
	Name      string `mapstructure:"name"`
	Daily     bool   `mapstructure:"daily"`
	DateField string `mapstructure:"date_field"`
	StartDate string `mapstructure:"start_date"`
}

type BackupConfig struct {
	OutputDir     string         `mapstructure:"output_dir"`
	Schedule      string         `mapstructure:"schedule"`
	RetentionDays int            `mapstructure:"retention_days"`
	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive. Either a service account credentials file, or an OAuth
	// client secret plus the token file written by `daydump gdrive-auth`.
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	TokenFile        string `mapstructure:"token_file"`
	FolderID         string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "daydump")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.password", "")
	v.SetDefault("database.preflight", true)
	v.SetDefault("database.mysqldump_path", "mysqldump")
	v.SetDefault("backup.output_dir", ".")
	v.SetDefault("backup.schedule", "0 0 1 * * *")
	v.SetDefault("backup.retention_days", 0)
}

// Load reads a YAML config file. Any key can be overridden from the
// environment as DAYDUMP_<SECTION>_<KEY>, e.g. DAYDUMP_DATABASE_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("daydump")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("database.name: %w", domain.ErrMissingDatabase)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user: %w", domain.ErrMissingUser)
	}
	if len(c.Database.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}

	seen := make(map[string]bool, len(c.Database.Tables))
	for i, t := range c.Database.Tables {
		if t.Name == "" {
			return fmt.Errorf("database.tables[%d]: %w", i, domain.ErrEmptyTableName)
		}
		if seen[t.Name] {
			return fmt.Errorf("database.tables[%d]: duplicate table %q", i, t.Name)
		}
		seen[t.Name] = true

		if !t.Daily {
			if t.DateField != "" || t.StartDate != "" {
				return fmt.Errorf("database.tables[%d]: date_field and start_date need daily: true", i)
			}
			continue
		}
		if t.DateField != "" && !identPattern.MatchString(t.DateField) {
			return fmt.Errorf("database.tables[%d]: invalid date_field %q", i, t.DateField)
		}
		if t.StartDate != "" {
			if _, err := domain.ParseDate(t.StartDate); err != nil {
				return fmt.Errorf("database.tables[%d]: %w", i, err)
			}
		}
	}

	if c.Backup.OutputDir == "" {
		return fmt.Errorf("backup.output_dir is required")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must not be negative")
	}

	for i, t := range c.Backup.UploadTargets {
		if t.Type == "gdrive" && t.TokenFile != "" && t.ClientSecretFile == "" {
			return fmt.Errorf("backup.upload_targets[%d]: token_file needs client_secret_file", i)
		}
	}

	return nil
}

// BuildTables turns the table list into descriptors, resolving daily
// defaults against clock.
func (c *Config) BuildTables(clock domain.Clock) ([]domain.Table, error) {
	tables := make([]domain.Table, 0, len(c.Database.Tables))
	for _, t := range c.Database.Tables {
		if !t.Daily {
			tables = append(tables, domain.WholeTable{Name: t.Name})
			continue
		}

		var start domain.Date
		if t.StartDate != "" {
			d, err := domain.ParseDate(t.StartDate)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
			start = d
		}
		tables = append(tables, domain.NewDailyTable(t.Name, t.DateField, start, clock))
	}
	return tables, nil
}

// DriveTarget returns the first Google Drive target, enabled or not.
func (c *Config) DriveTarget() (*UploadTarget, bool) {
	for i := range c.Backup.UploadTargets {
		if c.Backup.UploadTargets[i].Type == "gdrive" {
			return &c.Backup.UploadTargets[i], true
		}
	}
	return nil, false
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
