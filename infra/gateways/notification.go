package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/giovaniif/epayco-checkout/config"
	infra "github.com/giovaniif/epayco-checkout/infra"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
)

// NotificationGatewayHttp makes exactly one POST per call and keeps no
// state between calls.
type NotificationGatewayHttp struct {
	httpClient  *http.Client
	endpoint    string
	description string
}

func NewNotificationGatewayHttp(httpClient *http.Client, cfg config.Notification) *NotificationGatewayHttp {
	return &NotificationGatewayHttp{
		httpClient:  httpClient,
		endpoint:    strings.TrimSuffix(cfg.URL, "/") + cfg.Path,
		description: cfg.Description,
	}
}

func (g *NotificationGatewayHttp) Notify(ctx context.Context, recipient string, username string, amount string) (*protocols.NotificationAck, error) {
	payload := protocols.NotificationPayload{
		Recipient:   recipient,
		Username:    username,
		Amount:      amount,
		Description: g.description,
	}
	ack, err := g.send(ctx, payload)
	if err != nil {
		var providerErr *infra.ProviderError
		if errors.As(err, &providerErr) {
			return nil, err
		}
		return nil, infra.NewNotificationError(err.Error(), nil)
	}
	return ack, nil
}

func (g *NotificationGatewayHttp) send(ctx context.Context, payload protocols.NotificationPayload) (*protocols.NotificationAck, error) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.Inject(ctx, req.Header)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read notification response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, infra.NewNotificationError(fmt.Sprintf("notification service returned status %d", resp.StatusCode), bodyIfJSON(body))
	}

	ack := &protocols.NotificationAck{StatusCode: resp.StatusCode}
	if len(body) > 0 {
		var decoded map[string]any
		if err := sonic.Unmarshal(body, &decoded); err == nil {
			ack.Body = decoded
		}
	}
	return ack, nil
}
