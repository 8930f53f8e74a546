package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	TransportRabbitMQ = "rabbitmq"
	TransportSMTP     = "smtp"
)

type Config struct {
	Env           string `yaml:"env" env:"ENV" env-default:"local"`
	Storage       `yaml:"storage"`
	Postgres      `yaml:"postgres"`
	SQLite        `yaml:"sqlite"`
	Tokens        `yaml:"tokens"`
	RabbitMQ      `yaml:"rabbitmq"`
	Notifications `yaml:"notifications"`
	SMTP          `yaml:"smtp"`
	Redis         `yaml:"redis"`
	Frontend      `yaml:"frontend"`
	CORS          `yaml:"cors"`
	Seed          `yaml:"seed"`
	Scheduler     `yaml:"scheduler"`
	HTTPServer    `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"pet_adoption.db"`
}

type Tokens struct {
	JWTSecret            string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL       time.Duration `yaml:"access_token_ttl" env-default:"24h"`
	VerificationTokenTTL time.Duration `yaml:"verification_token_ttl" env-default:"24h"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"emails"`
}

type Notifications struct {
	Transport      string        `yaml:"transport" env:"NOTIFICATIONS_TRANSPORT" env-default:"rabbitmq"`
	Workers        int           `yaml:"workers" env-default:"2"`
	Buffer         int           `yaml:"buffer" env-default:"100"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env-default:"5s"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env-default:"noreply@petsystem.local"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type Frontend struct {
	URL string `yaml:"url" env:"FRONTEND_URL" env-default:"http://localhost:8081"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env-default:"*"`
}

type Seed struct {
	OnStartup bool `yaml:"on_startup" env:"SEED_ON_STARTUP" env-default:"false"`
}

type Scheduler struct {
	DigestSpec string `yaml:"digest_spec"`
}

// MustLoad reads the config file from the -config flag or CONFIG_PATH and
// applies env overrides. It panics on any failure.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath prefers the command line flag over the environment.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
