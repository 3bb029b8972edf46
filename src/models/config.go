package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Push     MPushConfig    `yaml:"push"`
	History  MHistoryConfig `yaml:"history"`
	Storage  MStorageConfig `yaml:"storage"`
	Relay    MRelayConfig   `yaml:"relay"`
	Auth     MAuthConfig    `yaml:"auth"`
	Client   MClientConfig  `yaml:"client"`
}

type MPushConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

type MHistoryConfig struct {
	Capacity              int `yaml:"capacity"`
	RecordIntervalSeconds int `yaml:"record_interval_seconds"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // memory, sqlite, postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MRelayConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Channel   string `yaml:"channel"`
}

type MAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type MClientConfig struct {
	URL                  string `yaml:"url"`
	TokenFile            string `yaml:"token_file"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
}
