package live

import "time"

const (
	PriceDropEvent = "price.drop"
	MonitorEvent   = "monitor.run"
)

type Event struct {
	Type           string    `json:"type"`
	SubscriptionID int64     `json:"subscription_id,omitempty"`
	ProductURL     string    `json:"product_url,omitempty"`
	PreviousPrice  string    `json:"previous_price,omitempty"`
	CurrentPrice   string    `json:"current_price,omitempty"`
	RunID          string    `json:"run_id,omitempty"`
	Checked        int       `json:"checked,omitempty"`
	Alerts         int       `json:"alerts,omitempty"`
	At             time.Time `json:"at"`
}
