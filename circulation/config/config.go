package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Circulation struct {
	StoreDriver     string `yaml:"storeDriver" envconfig:"STORE_DRIVER" default:"postgres"`
	DefaultLoanDays int    `yaml:"defaultLoanDays" envconfig:"LOAN_DEFAULT_DAYS" default:"30"`
	OverdueScanSpec string `yaml:"overdueScanSpec" envconfig:"OVERDUE_SCAN_SPEC" default:"@every 1h"`
	DueSoonDays     int    `yaml:"dueSoonDays" envconfig:"DUE_SOON_DAYS" default:"3"`
}

type Config struct {
	Server      HTTPServer   `yaml:"server"`
	Database    postgres.DB  `yaml:"db"`
	Kafka       kafka.Config `yaml:"kafka"`
	Log         logger.Log   `yaml:"log"`
	Circulation Circulation  `yaml:"circulation"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options set fallbacks for
// values the environment leaves empty.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		if err := config.validate(); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func (c *Config) validate() error {
	switch c.Circulation.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Circulation.StoreDriver)
	}
	if c.Circulation.DefaultLoanDays <= 0 {
		return fmt.Errorf("LOAN_DEFAULT_DAYS must be positive, got %d", c.Circulation.DefaultLoanDays)
	}
	return nil
}

func printConfig(cfg *Config) {
	redacted := *cfg
	redacted.Database.Password = "***"
	jscfg, _ := json.MarshalIndent(redacted, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
