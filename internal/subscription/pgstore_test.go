package subscription

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
)

// openTestPG connects to the database named by PRICEWATCH_TEST_PG_DSN, or
// skips the test when it is unset.
func openTestPG(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("PRICEWATCH_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PRICEWATCH_TEST_PG_DSN not set")
	}
	store, err := OpenPG(context.Background(), dsn, 2)
	if err != nil {
		t.Fatalf("OpenPG: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// testEmail is unique per run so tests can share a database.
func testEmail(t *testing.T, store *PGStore) string {
	t.Helper()
	email := uuid.NewString() + "@pricewatch.test"
	t.Cleanup(func() {
		_, _ = store.Pool.Exec(context.Background(), `DELETE FROM subscriptions WHERE email = $1`, email)
	})
	return email
}

func TestPGStoreInsertListUpdate(t *testing.T) {
	ctx := context.Background()
	store := openTestPG(t)
	email := testEmail(t, store)

	rows := []models.Subscription{
		{ProductURL: "https://amazon.com/a", BaselinePrice: 5000, Email: email},
		{ProductURL: "https://walmart.com/b", BaselinePrice: 7200.5, Email: email},
		{ProductURL: "N/A", BaselinePrice: 72000, Email: email},
	}
	n, err := store.InsertMany(ctx, rows)
	if err != nil || n != 3 {
		t.Fatalf("InsertMany = %d, %v; want 3, nil", n, err)
	}

	mine, err := store.ListByEmail(ctx, email)
	if err != nil {
		t.Fatalf("ListByEmail: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("ListByEmail returned %d rows; want 3", len(mine))
	}
	for i, sub := range mine {
		if sub.ID == 0 || sub.ProductURL != rows[i].ProductURL || sub.BaselinePrice != rows[i].BaselinePrice {
			t.Errorf("row %d = %+v; want %+v", i, sub, rows[i])
		}
		if sub.CreatedAt.IsZero() {
			t.Errorf("row %d has no created_at", i)
		}
	}

	if err := store.UpdateBaseline(ctx, mine[0].ID, 4500); err != nil {
		t.Fatalf("UpdateBaseline: %v", err)
	}
	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	got := map[int64]float64{}
	for _, sub := range all {
		got[sub.ID] = sub.BaselinePrice
	}
	if got[mine[0].ID] != 4500 || got[mine[1].ID] != 7200.5 {
		t.Errorf("baselines after update = %v / %v; want 4500 / 7200.5", got[mine[0].ID], got[mine[1].ID])
	}

	if err := store.UpdateBaseline(ctx, -1, 1); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("UpdateBaseline(missing) = %v; want not found", err)
	}
}

func TestPGStoreEmptyAndUnknown(t *testing.T) {
	ctx := context.Background()
	store := openTestPG(t)

	if n, err := store.InsertMany(ctx, nil); err != nil || n != 0 {
		t.Errorf("InsertMany(nil) = %d, %v; want 0, nil", n, err)
	}
	subs, err := store.ListByEmail(ctx, testEmail(t, store))
	if err != nil {
		t.Fatalf("ListByEmail: %v", err)
	}
	if subs == nil || len(subs) != 0 {
		t.Errorf("ListByEmail = %#v; want empty non-nil slice", subs)
	}
}

func TestPGStoreCanceledInsertIsPersistenceError(t *testing.T) {
	store := openTestPG(t)
	email := testEmail(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.InsertMany(ctx, []models.Subscription{{ProductURL: "https://amazon.com/a", BaselinePrice: 1, Email: email}})
	if !apperr.Is(err, apperr.PersistenceError) {
		t.Errorf("InsertMany with canceled ctx = %v; want persistence error", err)
	}

	subs, err := store.ListByEmail(context.Background(), email)
	if err != nil || len(subs) != 0 {
		t.Errorf("ListByEmail after failed insert = %d rows, %v; want 0", len(subs), err)
	}
}

func TestOpenPGRejectsBadDSN(t *testing.T) {
	if _, err := OpenPG(context.Background(), "postgres://%zz", 1); err == nil {
		t.Error("expected error for malformed dsn")
	}
}
