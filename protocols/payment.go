package protocols

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Text decodes a JSON string or number into its textual form. Card and
// amount fields reach us either way depending on the client.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n any
	if err := sonic.UnmarshalString(raw, &n); err != nil {
		return err
	}
	if _, ok := n.(float64); !ok {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*t = Text(raw)
	return nil
}

func (t Text) String() string {
	return string(t)
}

type PaymentRequest struct {
	CardNumber Text `json:"card_number"`
	ExpYear    Text `json:"exp_year"`
	ExpMonth   Text `json:"exp_month"`
	CVC        Text `json:"cvc"`
	Name       Text `json:"name"`
	LastName   Text `json:"last_name"`
	Email      Text `json:"email"`
	Phone      Text `json:"phone"`
	DocNumber  Text `json:"doc_number"`
	City       Text `json:"city"`
	Address    Text `json:"address"`
	CellPhone  Text `json:"cell_phone"`
	Bill       Text `json:"bill"`
	Value      Text `json:"value"`
}

var ErrMissingFields = errors.New("missing required fields")

// Validate reports every empty field by its JSON name.
func (r PaymentRequest) Validate() error {
	fields := []struct {
		name  string
		value Text
	}{
		{"card_number", r.CardNumber},
		{"exp_year", r.ExpYear},
		{"exp_month", r.ExpMonth},
		{"cvc", r.CVC},
		{"name", r.Name},
		{"last_name", r.LastName},
		{"email", r.Email},
		{"phone", r.Phone},
		{"doc_number", r.DocNumber},
		{"city", r.City},
		{"address", r.Address},
		{"cell_phone", r.CellPhone},
		{"bill", r.Bill},
		{"value", r.Value},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(string(f.value)) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

func (r PaymentRequest) Card() CardFields {
	return CardFields{
		Number:   r.CardNumber.String(),
		ExpYear:  r.ExpYear.String(),
		ExpMonth: r.ExpMonth.String(),
		CVC:      r.CVC.String(),
	}
}

func (r PaymentRequest) Customer() CustomerFields {
	return CustomerFields{
		Name:     r.Name.String(),
		LastName: r.LastName.String(),
		Email:    r.Email.String(),
		Phone:    r.Phone.String(),
	}
}

func (r PaymentRequest) Charge() ChargeFields {
	return ChargeFields{
		DocNumber: r.DocNumber.String(),
		Name:      r.Name.String(),
		LastName:  r.LastName.String(),
		Email:     r.Email.String(),
		City:      r.City.String(),
		Address:   r.Address.String(),
		Phone:     r.Phone.String(),
		CellPhone: r.CellPhone.String(),
		Bill:      r.Bill.String(),
		Value:     r.Value.String(),
	}
}
