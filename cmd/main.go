package main

import (
	"fmt"
	"os"

	"github.com/giovaniif/epayco-checkout/cmd/api"
	"github.com/giovaniif/epayco-checkout/config"
	"github.com/giovaniif/epayco-checkout/infra/logging"
	"github.com/giovaniif/epayco-checkout/infra/loki"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Println("Error reading config", err)
		os.Exit(1)
	}

	lokiWriter := loki.NewWriter(cfg.Observability.LokiURL, cfg.Observability.ServiceName)
	if lokiWriter != nil {
		defer lokiWriter.Close()
		logging.Setup(cfg.APP.LogLevel, cfg.APP.LogFormat, lokiWriter)
	} else {
		logging.Setup(cfg.APP.LogLevel, cfg.APP.LogFormat, nil)
	}

	if shutdown := tracing.Init(cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint); shutdown != nil {
		defer shutdown()
	}

	if err := api.StartServer(cfg); err != nil {
		logrus.WithError(err).Error("server stopped")
	}
}
