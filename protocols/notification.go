package protocols

import "context"

type NotificationPayload struct {
	Recipient   string `json:"recipient"`
	Username    string `json:"username"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type NotificationAck struct {
	StatusCode int
	Body       map[string]any
}

type Notifier interface {
	Notify(ctx context.Context, recipient string, username string, amount string) (*NotificationAck, error)
}
