package gateways

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/giovaniif/epayco-checkout/config"
	infra "github.com/giovaniif/epayco-checkout/infra"
	protocols "github.com/giovaniif/epayco-checkout/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method  string
	path    string
	query   map[string]string
	user    string
	pass    string
	payload map[string]any
}

func newProviderServer(t *testing.T, status int, response string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := capturedRequest{method: r.Method, path: r.URL.Path, query: map[string]string{}}
		for k := range r.URL.Query() {
			req.query[k] = r.URL.Query().Get(k)
		}
		req.user, req.pass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		if len(body) > 0 {
			_ = sonic.Unmarshal(body, &req.payload)
		}
		captured = append(captured, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func newTestGateway(baseURL string) *EpaycoGateway {
	return NewEpaycoGateway(&http.Client{}, config.Provider{
		PublicKey:  "pub-key",
		PrivateKey: "priv-key",
		Test:       true,
		Language:   "ES",
		BaseURL:    baseURL,
	}, config.Charge{
		DocType:     "CC",
		Currency:    "COP",
		Tax:         "0",
		Description: "Pago de servicios",
	})
}

func assertProviderError(t *testing.T, err error, kind error) *infra.ProviderError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var providerErr *infra.ProviderError
	require.True(t, errors.As(err, &providerErr))
	return providerErr
}

func TestCreateTokenSendsCardFields(t *testing.T) {
	server, captured := newProviderServer(t, http.StatusOK, `{"status":true,"id":"tok_123","data":{}}`)
	g := newTestGateway(server.URL)

	token, err := g.CreateToken(context.Background(), protocols.CardFields{
		Number: "4575623182290326", ExpYear: "2025", ExpMonth: "12", CVC: "123",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok_123", token.Id)
	assert.True(t, token.Success)
	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, tokenPath, req.path)
	assert.Equal(t, "pub-key", req.user)
	assert.Equal(t, "priv-key", req.pass)
	assert.Equal(t, "4575623182290326", req.payload["card[number]"])
	assert.Equal(t, "2025", req.payload["card[exp_year]"])
	assert.Equal(t, "12", req.payload["card[exp_month]"])
	assert.Equal(t, "123", req.payload["card[cvc]"])
	assert.Equal(t, true, req.payload["hasCvv"])
	assert.Equal(t, true, req.payload["test"])
	assert.Equal(t, "ES", req.payload["lenguaje"])
}

func TestCreateTokenRejected(t *testing.T) {
	response := `{"status":false,"message":"Error al crear token","data":{"description":"tarjeta invalida"}}`
	server, _ := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)

	token, err := g.CreateToken(context.Background(), protocols.CardFields{Number: "1"})

	assert.Nil(t, token)
	providerErr := assertProviderError(t, err, infra.ErrTokenization)
	assert.Equal(t, "Error al crear token", providerErr.Message)
	assert.JSONEq(t, response, string(providerErr.ResponseBody()))
}

func TestCreateTokenTransportError(t *testing.T) {
	server, _ := newProviderServer(t, http.StatusOK, `{}`)
	g := newTestGateway(server.URL)
	server.Close()

	_, err := g.CreateToken(context.Background(), protocols.CardFields{Number: "1"})

	providerErr := assertProviderError(t, err, infra.ErrTokenization)
	assert.Empty(t, providerErr.Body)
	assert.Contains(t, providerErr.Message, "provider request failed")
}

func TestCreateTokenNon2xxKeepsProviderBody(t *testing.T) {
	server, _ := newProviderServer(t, http.StatusUnauthorized, `{"status":false,"message":"bad credentials"}`)
	g := newTestGateway(server.URL)

	_, err := g.CreateToken(context.Background(), protocols.CardFields{Number: "1"})

	providerErr := assertProviderError(t, err, infra.ErrTokenization)
	assert.Contains(t, providerErr.Message, "401")
	assert.JSONEq(t, `{"status":false,"message":"bad credentials"}`, string(providerErr.Body))
}

func TestCreateCustomerSendsToken(t *testing.T) {
	server, captured := newProviderServer(t, http.StatusOK, `{"status":true,"data":{"customerId":"cus_9"}}`)
	g := newTestGateway(server.URL)
	fields := protocols.CustomerFields{Name: "Juan", LastName: "Perez", Email: "juan@example.com", Phone: "3000000000"}

	customer, err := g.CreateCustomer(context.Background(), &protocols.CardToken{Id: "tok_123", Success: true}, fields)

	require.NoError(t, err)
	assert.Equal(t, "cus_9", customer.Id)
	assert.Equal(t, fields, customer.CustomerFields)
	req := (*captured)[0]
	assert.Equal(t, customerPath, req.path)
	assert.Equal(t, "tok_123", req.payload["token_card"])
	assert.Equal(t, "Juan", req.payload["name"])
	assert.Equal(t, "Perez", req.payload["last_name"])
	assert.Equal(t, "juan@example.com", req.payload["email"])
	assert.Equal(t, "3000000000", req.payload["phone"])
	assert.Equal(t, true, req.payload["default"])
}

func TestCreateCustomerWithoutTokenDoesNotCallProvider(t *testing.T) {
	server, captured := newProviderServer(t, http.StatusOK, `{}`)
	g := newTestGateway(server.URL)

	_, err := g.CreateCustomer(context.Background(), nil, protocols.CustomerFields{})

	assertProviderError(t, err, infra.ErrCustomerRegistration)
	assert.Empty(t, *captured)
}

func TestCreateCustomerRejected(t *testing.T) {
	server, _ := newProviderServer(t, http.StatusOK, `{"status":false,"message":"email invalido"}`)
	g := newTestGateway(server.URL)

	_, err := g.CreateCustomer(context.Background(), &protocols.CardToken{Id: "tok"}, protocols.CustomerFields{})

	providerErr := assertProviderError(t, err, infra.ErrCustomerRegistration)
	assert.Equal(t, "email invalido", providerErr.Message)
}

func TestCreateChargeSendsFixedValues(t *testing.T) {
	response := `{"success":true,"data":{"ref_payco":123456,"factura":"OR-1234","estado":"Aceptada","valor":10000,"respuesta":"Aprobada"}}`
	server, captured := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)
	fields := protocols.ChargeFields{
		DocNumber: "1234567890", Name: "Juan", LastName: "Perez", Email: "juan@example.com",
		City: "Bogota", Address: "Calle 1", Phone: "3000000000", CellPhone: "3010000001",
		Bill: "OR-1234", Value: "10000",
	}

	charge, err := g.CreateCharge(context.Background(), fields, "cus_9", &protocols.CardToken{Id: "tok_123"})

	require.NoError(t, err)
	assert.Equal(t, "123456", charge.Id)
	assert.Equal(t, "OR-1234", charge.Bill)
	assert.Equal(t, "Aceptada", charge.Status)
	assert.Equal(t, "10000", charge.Value)
	assert.JSONEq(t, response, string(charge.Raw))

	req := (*captured)[0]
	assert.Equal(t, chargePath, req.path)
	assert.Equal(t, "tok_123", req.payload["token_card"])
	assert.Equal(t, "cus_9", req.payload["customer_id"])
	assert.Equal(t, "CC", req.payload["doc_type"])
	assert.Equal(t, "COP", req.payload["currency"])
	assert.Equal(t, "0", req.payload["tax"])
	assert.Equal(t, "10000", req.payload["tax_base"])
	assert.Equal(t, "10000", req.payload["value"])
	assert.Equal(t, "Pago de servicios", req.payload["description"])
	assert.Equal(t, "1234567890", req.payload["doc_number"])
	assert.Equal(t, "3010000001", req.payload["cell_phone"])
}

func TestCreateChargeUnsuccessful(t *testing.T) {
	response := `{"success":false,"title_response":"Error","text_response":"fondos insuficientes"}`
	server, _ := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)

	_, err := g.CreateCharge(context.Background(), protocols.ChargeFields{}, "cus_9", &protocols.CardToken{Id: "tok"})

	providerErr := assertProviderError(t, err, infra.ErrCharge)
	assert.Equal(t, "fondos insuficientes", providerErr.Message)
	assert.JSONEq(t, response, string(providerErr.Body))
}

func TestCreateChargeRejectedStatus(t *testing.T) {
	response := `{"success":true,"data":{"ref_payco":"77","estado":"Rechazada","respuesta":"Tarjeta bloqueada"}}`
	server, _ := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)

	_, err := g.CreateCharge(context.Background(), protocols.ChargeFields{}, "cus_9", &protocols.CardToken{Id: "tok"})

	providerErr := assertProviderError(t, err, infra.ErrCharge)
	assert.Equal(t, "Tarjeta bloqueada", providerErr.Message)
	assert.JSONEq(t, response, string(providerErr.Body))
}

func TestCreateChargePendingIsNotAnError(t *testing.T) {
	server, _ := newProviderServer(t, http.StatusOK, `{"success":true,"data":{"ref_payco":"78","estado":"Pendiente"}}`)
	g := newTestGateway(server.URL)

	charge, err := g.CreateCharge(context.Background(), protocols.ChargeFields{}, "cus_9", &protocols.CardToken{Id: "tok"})

	require.NoError(t, err)
	assert.Equal(t, "Pendiente", charge.Status)
}

func TestCreateChargeInvalidJSON(t *testing.T) {
	server, _ := newProviderServer(t, http.StatusOK, `<html>oops</html>`)
	g := newTestGateway(server.URL)

	_, err := g.CreateCharge(context.Background(), protocols.ChargeFields{}, "cus_9", &protocols.CardToken{Id: "tok"})

	providerErr := assertProviderError(t, err, infra.ErrCharge)
	assert.Empty(t, providerErr.Body)
	assert.Contains(t, string(providerErr.ResponseBody()), "invalid provider response")
}

func TestGetChargeQueriesByReference(t *testing.T) {
	response := `{"success":true,"data":{"ref_payco":123456,"estado":"Aceptada","valor":"10000"}}`
	server, captured := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)

	charge, err := g.GetCharge(context.Background(), "123456")

	require.NoError(t, err)
	assert.Equal(t, "123456", charge.Id)
	assert.JSONEq(t, response, string(charge.Raw))
	req := (*captured)[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, lookupPath, req.path)
	assert.Equal(t, "123456", req.query["ref_payco"])
	assert.Equal(t, "pub-key", req.query["public_key"])
	assert.Nil(t, req.payload)
}

func TestGetChargeEmptyId(t *testing.T) {
	server, captured := newProviderServer(t, http.StatusOK, `{}`)
	g := newTestGateway(server.URL)

	_, err := g.GetCharge(context.Background(), "  ")

	assertProviderError(t, err, infra.ErrLookup)
	assert.Empty(t, *captured)
}

func TestGetChargeNotFound(t *testing.T) {
	response := `{"success":false,"text_response":"transaccion no encontrada"}`
	server, _ := newProviderServer(t, http.StatusOK, response)
	g := newTestGateway(server.URL)

	_, err := g.GetCharge(context.Background(), "999")

	providerErr := assertProviderError(t, err, infra.ErrLookup)
	assert.Equal(t, "transaccion no encontrada", providerErr.Message)
	assert.JSONEq(t, response, string(providerErr.Body))
}

func TestCreateChargeSendsNumericValueAsText(t *testing.T) {
	server, captured := newProviderServer(t, http.StatusOK, `{"success":true,"data":{"ref_payco":"1","estado":"Aceptada"}}`)
	g := newTestGateway(server.URL)
	var req protocols.PaymentRequest
	require.NoError(t, sonic.Unmarshal([]byte(`{"value":10000,"bill":"OR-1234","doc_number":1234567890}`), &req))

	_, err := g.CreateCharge(context.Background(), req.Charge(), "cus_9", &protocols.CardToken{Id: "tok"})

	require.NoError(t, err)
	payload := (*captured)[0].payload
	assert.Equal(t, "10000", payload["value"])
	assert.Equal(t, "10000", payload["tax_base"])
	assert.Equal(t, "1234567890", payload["doc_number"])
}
