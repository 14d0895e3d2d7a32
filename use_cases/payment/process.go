package payment

import (
	"context"
	"errors"
	"time"

	infra "github.com/giovaniif/epayco-checkout/infra"
	"github.com/giovaniif/epayco-checkout/infra/logging"
	"github.com/giovaniif/epayco-checkout/infra/metrics"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
	"github.com/sirupsen/logrus"
)

type State string

const (
	Tokenizing          State = "tokenizing"
	RegisteringCustomer State = "registering_customer"
	Charging            State = "charging"
	Notifying           State = "notifying"
	Done                State = "done"
	Failed              State = "failed"
)

func NewProcessPayment(provider protocols.ProviderGateway, notifier protocols.Notifier) *ProcessPayment {
	return &ProcessPayment{
		provider: provider,
		notifier: notifier,
	}
}

// Execute runs tokenize, register, charge and notify in order. The first
// failure among the first three ends the run; a notification failure is
// kept in the output and never returned.
func (p *ProcessPayment) Execute(ctx context.Context, input protocols.PaymentRequest) (Output, error) {
	var out Output
	log := logging.FromContext(ctx).WithField("bill", input.Bill.String())

	if err := input.Validate(); err != nil {
		return out, err
	}

	out.enter(Tokenizing)
	token, err := step(ctx, Tokenizing, func(ctx context.Context) (*protocols.CardToken, error) {
		token, err := p.provider.CreateToken(ctx, input.Card())
		if err == nil && (token == nil || !token.Success) {
			err = infra.NewTokenizationError("card tokenization was not successful", nil)
		}
		return token, err
	})
	if err != nil {
		return out.fail(log, Tokenizing, err)
	}

	out.enter(RegisteringCustomer)
	customer, err := step(ctx, RegisteringCustomer, func(ctx context.Context) (*protocols.CustomerRecord, error) {
		customer, err := p.provider.CreateCustomer(ctx, token, input.Customer())
		if err == nil && (customer == nil || customer.Id == "") {
			err = infra.NewCustomerRegistrationError("provider returned no customer", nil)
		}
		return customer, err
	})
	if err != nil {
		return out.fail(log, RegisteringCustomer, err)
	}
	log.WithField("customer_id", customer.Id).Info("customer registered")

	out.enter(Charging)
	log.WithFields(logrus.Fields{"customer_id": customer.Id, "value": input.Value.String()}).Debug("creating charge")
	charge, err := step(ctx, Charging, func(ctx context.Context) (*protocols.ChargeResult, error) {
		charge, err := p.provider.CreateCharge(ctx, input.Charge(), customer.Id, token)
		if err == nil && charge == nil {
			err = infra.NewChargeError("provider returned no charge", nil)
		}
		return charge, err
	})
	if err != nil {
		return out.fail(log, Charging, err)
	}
	out.Charge = charge
	metrics.ObserveAmount(charge.Value)
	log.WithFields(logrus.Fields{"ref_payco": charge.Id, "status": charge.Status}).Info("charge created")

	out.enter(Notifying)
	ack, err := step(ctx, Notifying, func(ctx context.Context) (*protocols.NotificationAck, error) {
		return p.notifier.Notify(ctx, input.Email.String(), input.Name.String(), input.Value.String())
	})
	if err != nil {
		if infra.IsFatal(err) {
			// record any notifier failure as a NotificationError
			err = infra.NewNotificationError(err.Error(), nil)
		}
		out.NotificationErr = err
		metrics.Notifications.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("payment notification failed")
	} else {
		out.Notification = ack
		metrics.Notifications.WithLabelValues("sent").Inc()
	}

	out.enter(Done)
	metrics.PipelineRuns.WithLabelValues(string(Done), "").Inc()
	return out, nil
}

// step times and traces one remote call.
func step[T any](ctx context.Context, state State, call func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, end := tracing.StartStep(ctx, string(state))
	result, err := call(ctx)
	end(err)
	metrics.ObserveStep(string(state), start)
	return result, err
}

func (o *Output) enter(state State) {
	o.States = append(o.States, state)
}

func (o *Output) fail(log *logrus.Entry, state State, err error) (Output, error) {
	o.enter(Failed)
	metrics.PipelineRuns.WithLabelValues(string(Failed), string(state)).Inc()
	entry := log.WithField("state", string(state))
	var providerErr *infra.ProviderError
	if errors.As(err, &providerErr) {
		entry = entry.WithField("kind", providerErr.Kind.Error())
	}
	entry.WithError(err).Error("payment pipeline failed")
	return *o, err
}

type Output struct {
	Charge          *protocols.ChargeResult
	Notification    *protocols.NotificationAck
	NotificationErr error
	States          []State
}

type ProcessPayment struct {
	provider protocols.ProviderGateway
	notifier protocols.Notifier
}
