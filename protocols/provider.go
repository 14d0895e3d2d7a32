package protocols

import "context"

type CardFields struct {
	Number   string
	ExpYear  string
	ExpMonth string
	CVC      string
}

type CustomerFields struct {
	Name     string
	LastName string
	Email    string
	Phone    string
}

type ChargeFields struct {
	DocNumber string
	Name      string
	LastName  string
	Email     string
	City      string
	Address   string
	Phone     string
	CellPhone string
	Bill      string
	Value     string
}

type CardToken struct {
	Id      string
	Success bool
}

type CustomerRecord struct {
	Id string
	CustomerFields
}

// ChargeResult keeps the provider body untouched in Raw; that is what
// callers of the HTTP API receive.
type ChargeResult struct {
	Id       string
	Bill     string
	Status   string
	Value    string
	Response string
	Raw      []byte
}

type ProviderGateway interface {
	CreateToken(ctx context.Context, card CardFields) (*CardToken, error)
	CreateCustomer(ctx context.Context, token *CardToken, customer CustomerFields) (*CustomerRecord, error)
	CreateCharge(ctx context.Context, charge ChargeFields, customerId string, token *CardToken) (*ChargeResult, error)
	GetCharge(ctx context.Context, chargeId string) (*ChargeResult, error)
}
