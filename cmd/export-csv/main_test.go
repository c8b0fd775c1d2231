package main

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"pricewatch/internal/price"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

func TestWriteSubscriptions(t *testing.T) {
	subs := []models.Subscription{
		{ID: 1, Email: "u@x.com", ProductURL: "https://amazon.com/a", BaselinePrice: 3306, CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{ID: 2, Email: "u@x.com", ProductURL: "https://walmart.com/b,c", BaselinePrice: 4200.5},
	}

	var buf bytes.Buffer
	if err := writeSubscriptions(&buf, subs, price.NewCodec(utils.DefaultConfig().Rates)); err != nil {
		t.Fatalf("writeSubscriptions: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d; want header + 2", len(records))
	}
	want := []string{"1", "u@x.com", "https://amazon.com/a", "3306.00", "3,306.00 FCFA", "2024-05-01T08:00:00Z"}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("row 1 col %d = %q; want %q", i, records[1][i], v)
		}
	}
	if records[2][2] != "https://walmart.com/b,c" || records[2][5] != "" {
		t.Errorf("row 2 = %v", records[2])
	}
}
