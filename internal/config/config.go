package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MQTT     MQTTConfig
	Storage  StorageConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MQTTConfig struct {
	Enabled             bool
	Broker              string
	Port                int
	Username            string
	Password            string
	UploadTopic         string
	ResponseTopicPrefix string
	QoS                 byte
	KeepAlive           time.Duration
	MaxReconnectDelay   time.Duration
}

type StorageConfig struct {
	DatasetsRoot   string
	MaxImageSizeMB int
}

type LoggerConfig struct {
	Level  string
	Format string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "annotator")
	v.SetDefault("DB_PASSWORD", "annotator")
	v.SetDefault("DB_NAME", "annotator")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("MQTT_ENABLED", true)
	v.SetDefault("MQTT_BROKER", "localhost")
	v.SetDefault("MQTT_PORT", 1883)
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MQTT_UPLOAD_TOPIC", "annotator/upload/+")
	v.SetDefault("MQTT_RESPONSE_TOPIC_PREFIX", "annotator/response")
	v.SetDefault("MQTT_QOS", 1)
	v.SetDefault("MQTT_KEEPALIVE", "120s")
	v.SetDefault("MQTT_MAX_RECONNECT_DELAY", "120s")
	v.SetDefault("DATASETS_ROOT", "./datasets")
	v.SetDefault("MAX_IMAGE_SIZE_MB", 10)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	connLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}
	keepAlive, err := time.ParseDuration(v.GetString("MQTT_KEEPALIVE"))
	if err != nil {
		keepAlive = 120 * time.Second
	}
	reconnectDelay, err := time.ParseDuration(v.GetString("MQTT_MAX_RECONNECT_DELAY"))
	if err != nil {
		reconnectDelay = 120 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		MQTT: MQTTConfig{
			Enabled:             v.GetBool("MQTT_ENABLED"),
			Broker:              v.GetString("MQTT_BROKER"),
			Port:                v.GetInt("MQTT_PORT"),
			Username:            v.GetString("MQTT_USERNAME"),
			Password:            v.GetString("MQTT_PASSWORD"),
			UploadTopic:         v.GetString("MQTT_UPLOAD_TOPIC"),
			ResponseTopicPrefix: v.GetString("MQTT_RESPONSE_TOPIC_PREFIX"),
			QoS:                 byte(v.GetInt("MQTT_QOS")),
			KeepAlive:           keepAlive,
			MaxReconnectDelay:   reconnectDelay,
		},
		Storage: StorageConfig{
			DatasetsRoot:   v.GetString("DATASETS_ROOT"),
			MaxImageSizeMB: v.GetInt("MAX_IMAGE_SIZE_MB"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
