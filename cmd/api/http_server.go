package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/giovaniif/epayco-checkout/config"
	infra "github.com/giovaniif/epayco-checkout/infra"
	"github.com/giovaniif/epayco-checkout/infra/gateways"
	"github.com/giovaniif/epayco-checkout/infra/logging"
	"github.com/giovaniif/epayco-checkout/infra/metrics"
	"github.com/giovaniif/epayco-checkout/infra/requestid"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
	"github.com/giovaniif/epayco-checkout/use_cases/payment"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const jsonContentType = "application/json; charset=utf-8"

type PaymentProcessor interface {
	Execute(ctx context.Context, input protocols.PaymentRequest) (payment.Output, error)
}

type PaymentFinder interface {
	Execute(ctx context.Context, id string) (*protocols.ChargeResult, error)
}

func StartServer(cfg *config.Config) error {
	httpClient := &http.Client{}
	providerGateway := gateways.NewEpaycoGateway(httpClient, cfg.Provider, cfg.Charge)
	notificationGateway := gateways.NewNotificationGatewayHttp(httpClient, cfg.Notification)

	processUseCase := payment.NewProcessPayment(providerGateway, notificationGateway)
	getUseCase := payment.NewGetPayment(providerGateway)

	r := NewRouter(processUseCase, getUseCase)

	logrus.WithField("port", cfg.APP.PORT).Info("checkout is running")
	return r.Run(":" + cfg.APP.PORT)
}

func NewRouter(processUseCase PaymentProcessor, getUseCase PaymentFinder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestid.Middleware(), tracing.Middleware(), metrics.Middleware)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/process_payment", func(c *gin.Context) {
		// the pipeline runs to completion even if the caller goes away
		ctx := context.WithoutCancel(c.Request.Context())
		log := logging.FromContext(ctx)

		var paymentRequest protocols.PaymentRequest
		if err := c.ShouldBindJSON(&paymentRequest); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		start := time.Now()
		out, err := processUseCase.Execute(ctx, paymentRequest)
		if err != nil {
			writeError(c, err)
			return
		}
		log.WithFields(logrus.Fields{
			"ref_payco":   out.Charge.Id,
			"notified":    out.NotificationErr == nil,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("payment processed")
		c.Data(http.StatusOK, jsonContentType, out.Charge.Raw)
	})

	r.GET("/payment/:id", func(c *gin.Context) {
		charge, err := getUseCase.Execute(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, jsonContentType, charge.Raw)
	})

	return r
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, protocols.ErrMissingFields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var providerErr *infra.ProviderError
	if errors.As(err, &providerErr) {
		c.Data(http.StatusInternalServerError, jsonContentType, providerErr.ResponseBody())
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
