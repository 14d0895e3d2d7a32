package config

import (
	"errors"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// New loads .env when present and parses the environment into Config.
func New() (*Config, error) {
	var cfg Config
	if err := godotenv.Load(".env"); err != nil {
		logrus.Warn("no .env file found, using process environment")
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.Provider.PublicKey == "" || cfg.Provider.PrivateKey == "" {
		return nil, errors.New("PUBLIC_KEY and PRIVATE_KEY must not be empty")
	}
	return &cfg, nil
}

type Config struct {
	APP
	Provider
	Charge
	Notification
	Observability
}

type APP struct {
	PORT      string `env:"APP_PORT" envDefault:"5001"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

type Provider struct {
	PublicKey  string `env:"PUBLIC_KEY,required"`
	PrivateKey string `env:"PRIVATE_KEY,required"`
	Test       bool   `env:"EPAYCO_TEST" envDefault:"false"`
	Language   string `env:"EPAYCO_LANGUAGE" envDefault:"ES"`
	BaseURL    string `env:"EPAYCO_BASE_URL" envDefault:"https://api.secure.payco.co"`
}

// Charge holds the values the provider requires on every charge. They are
// operator settings, never taken from the caller.
type Charge struct {
	DocType     string `env:"CHARGE_DOC_TYPE" envDefault:"CC"`
	Currency    string `env:"CHARGE_CURRENCY" envDefault:"COP"`
	Tax         string `env:"CHARGE_TAX" envDefault:"0"`
	Description string `env:"CHARGE_DESCRIPTION" envDefault:"Pago de servicios"`
}

type Notification struct {
	URL         string `env:"NOTIFICATION_URL" envDefault:"http://localhost:5000"`
	Path        string `env:"NOTIFICATION_PATH" envDefault:"/paymentNotification"`
	Description string `env:"NOTIFICATION_DESCRIPTION" envDefault:"Pago recibido con éxito"`
}

type Observability struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LokiURL      string `env:"LOKI_URL"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"epayco-checkout"`
}
