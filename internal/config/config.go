package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "trackdash.cfg.json"

// ServerConfig holds HTTP host settings
type ServerConfig struct {
	Address            string        `json:"address" mapstructure:"address" validate:"required"`
	ShutdownTimeout    time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout" validate:"gte=0"`
	SessionIdleTimeout time.Duration `json:"sessionIdleTimeout" mapstructure:"sessionIdleTimeout" validate:"gte=0"`
	MaxSessions        int           `json:"maxSessions" mapstructure:"maxSessions" validate:"gte=0"`
}

// PlaybackConfig holds playback clock and engine settings
type PlaybackConfig struct {
	Interval     time.Duration `json:"interval" mapstructure:"interval" validate:"gt=0"`
	DefaultSpeed int           `json:"defaultSpeed" mapstructure:"defaultSpeed" validate:"gtefield=MinSpeed,ltefield=MaxSpeed"`
	MinSpeed     int           `json:"minSpeed" mapstructure:"minSpeed" validate:"gte=0"`
	MaxSpeed     int           `json:"maxSpeed" mapstructure:"maxSpeed" validate:"gtefield=MinSpeed"`
	DriftStep    float64       `json:"driftStep" mapstructure:"driftStep" validate:"gt=0,lte=1"`
}

// ColumnConfig names the dataset columns
type ColumnConfig struct {
	VesselID  string `json:"vesselId" mapstructure:"vesselId" validate:"required"`
	Timestamp string `json:"timestamp" mapstructure:"timestamp"`
	Latitude  string `json:"latitude" mapstructure:"latitude"`
	Longitude string `json:"longitude" mapstructure:"longitude"`
	ShipType  string `json:"shipType" mapstructure:"shipType"`
	NavStatus string `json:"navStatus" mapstructure:"navStatus"`
}

// DataConfig selects where datasets are loaded from
type DataConfig struct {
	Source           string       `json:"source" mapstructure:"source" validate:"oneof=csv sqlite postgres"`
	MovementPath     string       `json:"movementPath" mapstructure:"movementPath" validate:"required_if=Source csv"`
	AttributePath    string       `json:"attributePath" mapstructure:"attributePath" validate:"required_if=Source csv"`
	MovementColumns  ColumnConfig `json:"movementColumns" mapstructure:"movementColumns"`
	AttributeColumns ColumnConfig `json:"attributeColumns" mapstructure:"attributeColumns"`
}

// SQLiteConfig holds SQLite storage settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path" validate:"required"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host" validate:"required"`
	Port     string `json:"port" mapstructure:"port" validate:"required,numeric"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database" validate:"required"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// StorageConfig holds database backend settings
type StorageConfig struct {
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Protocol   string `json:"protocol" mapstructure:"protocol" validate:"oneof=http https"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket" validate:"required_if=Enabled true"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// GraylogConfig holds the GELF log sink settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address" validate:"required_if=Enabled true"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// MonitorConfig holds status file settings
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile" validate:"required_if=Enabled true"`
	Interval   time.Duration `json:"interval" mapstructure:"interval" validate:"gt=0"`
}

// RenderConfig holds chart output settings
type RenderConfig struct {
	AssetsHost string `json:"assetsHost" mapstructure:"assetsHost" validate:"omitempty,url"`
	Theme      string `json:"theme" mapstructure:"theme"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("server.address", ":8050")
	viper.SetDefault("server.shutdownTimeout", "5s")
	viper.SetDefault("server.sessionIdleTimeout", "30m")
	viper.SetDefault("server.maxSessions", 1000)

	viper.SetDefault("playback.interval", "1s")
	viper.SetDefault("playback.defaultSpeed", 10)
	viper.SetDefault("playback.minSpeed", 1)
	viper.SetDefault("playback.maxSpeed", 60)
	viper.SetDefault("playback.driftStep", 0.1)

	viper.SetDefault("data.source", "csv")
	viper.SetDefault("data.movementPath", "merged_data.csv")
	viper.SetDefault("data.attributePath", "newship.csv")
	viper.SetDefault("data.movementColumns.vesselId", "MMSI")
	viper.SetDefault("data.movementColumns.timestamp", "Timestamp")
	viper.SetDefault("data.movementColumns.latitude", "Latitude")
	viper.SetDefault("data.movementColumns.longitude", "Longitude")
	viper.SetDefault("data.attributeColumns.vesselId", "MMSI")
	viper.SetDefault("data.attributeColumns.shipType", "Ship type")
	viper.SetDefault("data.attributeColumns.navStatus", "Navigational status")

	viper.SetDefault("storage.sqlite.path", "trackdash.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "trackdash")
	viper.SetDefault("db.sslMode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "trackdash")
	viper.SetDefault("influx.bucket", "playback")
	viper.SetDefault("influx.backupPath", "influx_backup.log.gzip")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trackdash")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.statusFile", "trackdash_status.txt")
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("render.assetsHost", "")
	viper.SetDefault("render.theme", "dark")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the HTTP host configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:            viper.GetString("server.address"),
		ShutdownTimeout:    viper.GetDuration("server.shutdownTimeout"),
		SessionIdleTimeout: viper.GetDuration("server.sessionIdleTimeout"),
		MaxSessions:        viper.GetInt("server.maxSessions"),
	}
}

// GetPlaybackConfig returns the playback configuration.
func GetPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		Interval:     viper.GetDuration("playback.interval"),
		DefaultSpeed: viper.GetInt("playback.defaultSpeed"),
		MinSpeed:     viper.GetInt("playback.minSpeed"),
		MaxSpeed:     viper.GetInt("playback.maxSpeed"),
		DriftStep:    viper.GetFloat64("playback.driftStep"),
	}
}

// GetDataConfig returns the dataset configuration.
func GetDataConfig() DataConfig {
	var cfg DataConfig
	cfg.Source = viper.GetString("data.source")
	cfg.MovementPath = viper.GetString("data.movementPath")
	cfg.AttributePath = viper.GetString("data.attributePath")
	cfg.MovementColumns = ColumnConfig{
		VesselID:  viper.GetString("data.movementColumns.vesselId"),
		Timestamp: viper.GetString("data.movementColumns.timestamp"),
		Latitude:  viper.GetString("data.movementColumns.latitude"),
		Longitude: viper.GetString("data.movementColumns.longitude"),
	}
	cfg.AttributeColumns = ColumnConfig{
		VesselID:  viper.GetString("data.attributeColumns.vesselId"),
		ShipType:  viper.GetString("data.attributeColumns.shipType"),
		NavStatus: viper.GetString("data.attributeColumns.navStatus"),
	}
	return cfg
}

// GetStorageConfig returns the database configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
			SSLMode:  viper.GetString("db.sslMode"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the Graylog configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
	}
}

// GetRenderConfig returns the chart configuration.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		AssetsHost: viper.GetString("render.assetsHost"),
		Theme:      viper.GetString("render.theme"),
	}
}

// Validate checks every section that the host depends on.
func Validate() error {
	v := validator.New()
	sections := []struct {
		name string
		cfg  any
	}{
		{"server", GetServerConfig()},
		{"playback", GetPlaybackConfig()},
		{"data", GetDataConfig()},
		{"influx", GetInfluxConfig()},
		{"graylog", GetGraylogConfig()},
		{"monitor", GetMonitorConfig()},
		{"render", GetRenderConfig()},
	}
	for _, s := range sections {
		if err := v.Struct(s.cfg); err != nil {
			return fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	data := GetDataConfig()
	storage := GetStorageConfig()
	switch data.Source {
	case "sqlite":
		if err := v.Struct(storage.SQLite); err != nil {
			return fmt.Errorf("invalid storage.sqlite config: %w", err)
		}
	case "postgres":
		if err := v.Struct(storage.Postgres); err != nil {
			return fmt.Errorf("invalid db config: %w", err)
		}
	}
	return nil
}
