package main

import (
	"strings"
	"testing"
)

func TestReadSubscriptions(t *testing.T) {
	in := `id,email,product_url,baseline_price,baseline_display,created_at
1,U@x.com,https://amazon.com/a,3306.00,"3,306.00 FCFA",2024-05-01T08:00:00Z
2,u@x.com,https://walmart.com/b,4200.5,,
`
	rows, err := readSubscriptions(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readSubscriptions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d; want 2", len(rows))
	}
	if rows[0].Email != "u@x.com" || rows[0].BaselinePrice != 3306 || rows[1].BaselinePrice != 4200.5 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReadSubscriptionsErrors(t *testing.T) {
	tests := []struct {
		name, in string
	}{
		{"missing column", "email,product_url\nu@x.com,https://a\n"},
		{"bad price", "email,product_url,baseline_price\nu@x.com,https://a,free\n"},
		{"zero price", "email,product_url,baseline_price\nu@x.com,https://a,0\n"},
		{"missing email", "email,product_url,baseline_price\n,https://a,10\n"},
	}
	for _, tt := range tests {
		if _, err := readSubscriptions(strings.NewReader(tt.in)); err == nil {
			t.Errorf("%s: readSubscriptions succeeded; want error", tt.name)
		}
	}
}
