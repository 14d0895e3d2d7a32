package gateways

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/giovaniif/epayco-checkout/config"
	infra "github.com/giovaniif/epayco-checkout/infra"
	"github.com/giovaniif/epayco-checkout/infra/tracing"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
)

const (
	tokenPath    = "/v1/tokens"
	customerPath = "/payment/v1/customer/create"
	chargePath   = "/payment/v1/charge/create"
	lookupPath   = "/restpagos/transaction/response.json"
)

var rejectedChargeStatuses = map[string]bool{
	"Rechazada": true,
	"Fallida":   true,
}

// EpaycoGateway talks to the ePayco REST API. It holds no per-request state
// and is safe to share between handlers.
type EpaycoGateway struct {
	httpClient *http.Client
	provider   config.Provider
	charge     config.Charge
}

func NewEpaycoGateway(httpClient *http.Client, provider config.Provider, charge config.Charge) *EpaycoGateway {
	return &EpaycoGateway{
		httpClient: httpClient,
		provider:   provider,
		charge:     charge,
	}
}

type tokenResponse struct {
	Status  bool           `json:"status"`
	Id      protocols.Text `json:"id"`
	Message string         `json:"message"`
	Data    struct {
		Description string `json:"description"`
	} `json:"data"`
}

type customerResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CustomerId  protocols.Text `json:"customerId"`
		Description string         `json:"description"`
	} `json:"data"`
}

type chargeResponse struct {
	Success       bool   `json:"success"`
	TitleResponse string `json:"title_response"`
	TextResponse  string `json:"text_response"`
	Data          struct {
		RefPayco  protocols.Text `json:"ref_payco"`
		Factura   protocols.Text `json:"factura"`
		Estado    string         `json:"estado"`
		Valor     protocols.Text `json:"valor"`
		Respuesta string         `json:"respuesta"`
	} `json:"data"`
}

func (g *EpaycoGateway) CreateToken(ctx context.Context, card protocols.CardFields) (*protocols.CardToken, error) {
	payload := map[string]any{
		"card[number]":    card.Number,
		"card[exp_year]":  card.ExpYear,
		"card[exp_month]": card.ExpMonth,
		"card[cvc]":       card.CVC,
		"hasCvv":          true,
	}
	body, err := g.do(ctx, http.MethodPost, tokenPath, payload)
	if err != nil {
		return nil, infra.NewTokenizationError(err.Error(), body)
	}

	var resp tokenResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, infra.NewTokenizationError(fmt.Sprintf("invalid provider response: %v", err), nil)
	}
	if !resp.Status || resp.Id == "" {
		return nil, infra.NewTokenizationError(firstNonEmpty(resp.Message, resp.Data.Description, "card tokenization rejected"), body)
	}
	return &protocols.CardToken{Id: resp.Id.String(), Success: resp.Status}, nil
}

func (g *EpaycoGateway) CreateCustomer(ctx context.Context, token *protocols.CardToken, customer protocols.CustomerFields) (*protocols.CustomerRecord, error) {
	if token == nil || token.Id == "" {
		return nil, infra.NewCustomerRegistrationError("card token is required", nil)
	}
	payload := map[string]any{
		"token_card": token.Id,
		"name":       customer.Name,
		"last_name":  customer.LastName,
		"email":      customer.Email,
		"phone":      customer.Phone,
		"default":    true,
	}
	body, err := g.do(ctx, http.MethodPost, customerPath, payload)
	if err != nil {
		return nil, infra.NewCustomerRegistrationError(err.Error(), body)
	}

	var resp customerResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, infra.NewCustomerRegistrationError(fmt.Sprintf("invalid provider response: %v", err), nil)
	}
	if !resp.Status || resp.Data.CustomerId == "" {
		return nil, infra.NewCustomerRegistrationError(firstNonEmpty(resp.Message, resp.Data.Description, "customer registration rejected"), body)
	}
	return &protocols.CustomerRecord{Id: resp.Data.CustomerId.String(), CustomerFields: customer}, nil
}

func (g *EpaycoGateway) CreateCharge(ctx context.Context, charge protocols.ChargeFields, customerId string, token *protocols.CardToken) (*protocols.ChargeResult, error) {
	if token == nil || token.Id == "" || customerId == "" {
		return nil, infra.NewChargeError("card token and customer id are required", nil)
	}
	payload := map[string]any{
		"token_card":  token.Id,
		"customer_id": customerId,
		"doc_type":    g.charge.DocType,
		"doc_number":  charge.DocNumber,
		"name":        charge.Name,
		"last_name":   charge.LastName,
		"email":       charge.Email,
		"city":        charge.City,
		"address":     charge.Address,
		"phone":       charge.Phone,
		"cell_phone":  charge.CellPhone,
		"bill":        charge.Bill,
		"description": g.charge.Description,
		"value":       charge.Value,
		"tax":         g.charge.Tax,
		"tax_base":    charge.Value,
		"currency":    g.charge.Currency,
	}
	body, err := g.do(ctx, http.MethodPost, chargePath, payload)
	if err != nil {
		return nil, infra.NewChargeError(err.Error(), body)
	}

	result, message, ok := decodeCharge(body)
	if !ok {
		return nil, infra.NewChargeError(message, bodyIfJSON(body))
	}
	if rejectedChargeStatuses[result.Status] {
		return nil, infra.NewChargeError(firstNonEmpty(result.Response, "charge "+strings.ToLower(result.Status)), body)
	}
	return result, nil
}

func (g *EpaycoGateway) GetCharge(ctx context.Context, chargeId string) (*protocols.ChargeResult, error) {
	if strings.TrimSpace(chargeId) == "" {
		return nil, infra.NewLookupError("charge id is required", nil)
	}
	query := url.Values{}
	query.Set("ref_payco", chargeId)
	query.Set("public_key", g.provider.PublicKey)

	body, err := g.do(ctx, http.MethodGet, lookupPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, infra.NewLookupError(err.Error(), body)
	}

	result, message, ok := decodeCharge(body)
	if !ok {
		return nil, infra.NewLookupError(message, bodyIfJSON(body))
	}
	return result, nil
}

func decodeCharge(body []byte) (*protocols.ChargeResult, string, bool) {
	var resp chargeResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Sprintf("invalid provider response: %v", err), false
	}
	if !resp.Success {
		return nil, firstNonEmpty(resp.TextResponse, resp.TitleResponse, "charge rejected by provider"), false
	}
	return &protocols.ChargeResult{
		Id:       resp.Data.RefPayco.String(),
		Bill:     resp.Data.Factura.String(),
		Status:   resp.Data.Estado,
		Value:    resp.Data.Valor.String(),
		Response: resp.Data.Respuesta,
		Raw:      body,
	}, "", true
}

// do sends one authenticated request. On a non-2xx answer the body is
// returned together with the error so callers can surface it.
func (g *EpaycoGateway) do(ctx context.Context, method string, path string, payload map[string]any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		payload["test"] = g.provider.Test
		payload["lenguaje"] = g.provider.Language
		raw, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := strings.TrimSuffix(g.provider.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.provider.PublicKey, g.provider.PrivateKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("type", "sdk")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.Inject(ctx, req.Header)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return bodyIfJSON(body), fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return body, nil
}

func bodyIfJSON(body []byte) []byte {
	if len(body) == 0 || !sonic.Valid(body) {
		return nil
	}
	return body
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
