// Package notify delivers price-drop alerts to subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// Notifier delivers one alert. Implementations return a DeliveryError
// when the alert could not be handed off.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// NotifierFunc adapts a plain function into a Notifier.
type NotifierFunc func(ctx context.Context, alert models.Alert) error

func (f NotifierFunc) Notify(ctx context.Context, alert models.Alert) error { return f(ctx, alert) }

// Compose renders the subscriber-facing message for an alert.
func Compose(codec *price.Codec, a models.Alert) models.Notification {
	now := codec.Format(a.CurrentPrice)
	return models.Notification{
		To:      a.Email,
		Subject: "Price drop: now " + now,
		Body: fmt.Sprintf(
			"Good news! A product you follow got cheaper.\n\nProduct: %s\nPrevious price: %s\nNew price: %s\n",
			a.ProductURL, codec.Format(a.PreviousPrice), now,
		),
	}
}

// Multi sends every alert to all notifiers and reports every failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.E(apperr.DeliveryError, "notify", errors.Join(errs...))
}

// LogNotifier writes alerts to a logger. It is the fallback when no
// mail server is configured.
type LogNotifier struct {
	Codec  *price.Codec
	Logger *log.Logger
}

func (l LogNotifier) Notify(_ context.Context, alert models.Alert) error {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	msg := Compose(l.Codec, alert)
	logger.Printf("[notify] to=%s subject=%q url=%s", msg.To, msg.Subject, alert.ProductURL)
	return nil
}
