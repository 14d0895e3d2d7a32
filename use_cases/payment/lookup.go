package payment

import (
	"context"
	"time"

	"github.com/giovaniif/epayco-checkout/infra/logging"
	"github.com/giovaniif/epayco-checkout/infra/metrics"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
)

const lookupStep = "lookup"

func NewGetPayment(provider protocols.ProviderGateway) *GetPayment {
	return &GetPayment{provider: provider}
}

func (g *GetPayment) Execute(ctx context.Context, id string) (*protocols.ChargeResult, error) {
	start := time.Now()
	ctx, end := tracing.StartStep(ctx, lookupStep)
	charge, err := g.provider.GetCharge(ctx, id)
	end(err)
	metrics.ObserveStep(lookupStep, start)
	if err != nil {
		logging.FromContext(ctx).WithField("ref_payco", id).WithError(err).Warn("charge lookup failed")
		return nil, err
	}
	return charge, nil
}

type GetPayment struct {
	provider protocols.ProviderGateway
}
