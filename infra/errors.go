package infra

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	ErrTokenization         = errors.New("tokenization error")
	ErrCustomerRegistration = errors.New("customer registration error")
	ErrCharge               = errors.New("charge error")
	ErrLookup               = errors.New("lookup error")
	ErrNotification         = errors.New("notification error")
)

// ProviderError is the single error shape returned by the provider and
// notification gateways. Body holds the remote JSON answer when there was one.
type ProviderError struct {
	Kind    error
	Message string
	Body    []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// ResponseBody is what an HTTP caller sees: the provider's own error JSON
// when it answered, otherwise {"error": "<message>"}.
func (e *ProviderError) ResponseBody() []byte {
	if len(e.Body) > 0 {
		return e.Body
	}
	raw, err := sonic.Marshal(map[string]string{"error": e.Message})
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return raw
}

func NewTokenizationError(message string, body []byte) error {
	return &ProviderError{Kind: ErrTokenization, Message: message, Body: body}
}

func NewCustomerRegistrationError(message string, body []byte) error {
	return &ProviderError{Kind: ErrCustomerRegistration, Message: message, Body: body}
}

func NewChargeError(message string, body []byte) error {
	return &ProviderError{Kind: ErrCharge, Message: message, Body: body}
}

func NewLookupError(message string, body []byte) error {
	return &ProviderError{Kind: ErrLookup, Message: message, Body: body}
}

func NewNotificationError(message string, body []byte) error {
	return &ProviderError{Kind: ErrNotification, Message: message, Body: body}
}

// IsFatal is true for failures that must stop the payment pipeline.
// Notification failures never are.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrNotification)
}
