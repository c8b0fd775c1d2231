package subscription

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"pricewatch/pkg/apperr"
	"pricewatch/pkg/database"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(utils.DBConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLStoreInsertAndList(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))

	rows := []models.Subscription{
		{ProductURL: "https://amazon.com/a", BaselinePrice: 5000, Email: "u@x.com"},
		{ProductURL: "https://walmart.com/b", BaselinePrice: 7200.5, Email: "u@x.com"},
		{ProductURL: "https://glotelho.cm/c", BaselinePrice: 72000, Email: "other@x.com"},
	}
	n, err := store.InsertMany(ctx, rows)
	if err != nil || n != 3 {
		t.Fatalf("InsertMany = %d, %v; want 3, nil", n, err)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll returned %d rows; want 3", len(all))
	}
	for i, sub := range all {
		if sub.ID == 0 || sub.ProductURL != rows[i].ProductURL || sub.BaselinePrice != rows[i].BaselinePrice {
			t.Errorf("row %d = %+v; want %+v", i, sub, rows[i])
		}
	}

	mine, err := store.ListByEmail(ctx, "u@x.com")
	if err != nil {
		t.Fatalf("ListByEmail: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ListByEmail returned %d rows; want 2", len(mine))
	}
}

func TestSQLStoreInsertEmpty(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	n, err := store.InsertMany(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("InsertMany(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestSQLStoreUpdateBaselineIsRowScoped(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))

	// Two users tracking the same product.
	if _, err := store.InsertMany(ctx, []models.Subscription{
		{ProductURL: "https://amazon.com/a", BaselinePrice: 5000, Email: "one@x.com"},
		{ProductURL: "https://amazon.com/a", BaselinePrice: 5000, Email: "two@x.com"},
	}); err != nil {
		t.Fatal(err)
	}
	all, _ := store.ListAll(ctx)

	if err := store.UpdateBaseline(ctx, all[0].ID, 4500); err != nil {
		t.Fatalf("UpdateBaseline: %v", err)
	}

	all, _ = store.ListAll(ctx)
	if all[0].BaselinePrice != 4500 {
		t.Errorf("updated baseline = %v; want 4500", all[0].BaselinePrice)
	}
	if all[1].BaselinePrice != 5000 {
		t.Errorf("other baseline = %v; want 5000", all[1].BaselinePrice)
	}

	if err := store.UpdateBaseline(ctx, 9999, 1); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("UpdateBaseline(unknown) err = %v; want not_found", err)
	}
}

func TestSQLStoreClosedDB(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLStore(db)
	db.Close()

	_, err := store.InsertMany(context.Background(), []models.Subscription{{ProductURL: "u", BaselinePrice: 1, Email: "e"}})
	if !apperr.Is(err, apperr.PersistenceError) {
		t.Errorf("InsertMany on closed db err = %v; want persistence", err)
	}
}
