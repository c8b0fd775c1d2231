package models

import "time"

// Subscription is one tracked product for one user.
type Subscription struct {
	ID            int64     `json:"id"`
	ProductURL    string    `json:"product_url"`
	BaselinePrice float64   `json:"baseline_price"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Alert is emitted when a tracked product is observed below its baseline.
type Alert struct {
	SubscriptionID int64     `json:"subscription_id"`
	Email          string    `json:"email"`
	ProductURL     string    `json:"product_url"`
	PreviousPrice  float64   `json:"previous_price"`
	CurrentPrice   float64   `json:"current_price"`
	At             time.Time `json:"at"`
}

// Notification is the payload handed to an outbound delivery channel.
type Notification struct {
	To      string
	Subject string
	Body    string
}
