package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug                    bool          `envconfig:"debug"`
	Port                     int           `envconfig:"port" default:"8080"`
	Env                      string        `envconfig:"env" default:"dev"`
	PostgresHost             string        `envconfig:"postgres_host"`
	PostgresUser             string        `envconfig:"postgres_user"`
	PostgresDB               string        `envconfig:"postgres_db"`
	PostgresPort             int           `envconfig:"postgres_port" default:"5432"`
	PostgresPassword         string        `envconfig:"postgres_password"`
	PostgresTimeZone         string        `envconfig:"postgres_timezone" default:"UTC"`
	JWTSecret                string        `envconfig:"jwt_secret"`
	TokenTTL                 time.Duration `envconfig:"token_ttl" default:"24h"`
	FirebaseCredentials      string        `envconfig:"firebase_credentials"`
	AccessControlAllowOrigin string        `envconfig:"access_control_allow_origin"`
	SendRatePerMinute        uint          `envconfig:"send_rate_per_minute" default:"30"`
	ShutdownTimeout          time.Duration `envconfig:"shutdown_timeout" default:"10s"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("clubhub", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// IsProduction reports whether verbose SQL logging should be disabled.
func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}
