package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestInventoriesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventories.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventories",
		"size_id UUID NOT NULL UNIQUE",
		"CHECK (quantity_in_stock >= 0)",
		"CHECK (reserved_quantity >= 0)",
		"CHECK (reserved_quantity <= quantity_in_stock)",
		"DROP TABLE IF EXISTS inventories",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestStockTransactionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_stock_transactions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS stock_transactions",
		"FOREIGN KEY (inventory_id) REFERENCES inventories(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"stock_delta INTEGER NOT NULL",
		"reserved_delta INTEGER NOT NULL",
		"DROP TABLE IF EXISTS stock_transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartItemsMigrationContainsReservationColumns(t *testing.T) {
	content := readMigration(t, "*_create_cart_items.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS cart_items",
		"reservation_state TEXT NOT NULL DEFAULT 'pending'",
		"reserved_until TIMESTAMPTZ NOT NULL",
		"idx_cart_items_reserved_until",
		"DROP TABLE IF EXISTS cart_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsOrderTables(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"order_number TEXT NOT NULL UNIQUE",
		"status TEXT NOT NULL DEFAULT 'pending'",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS order_items",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAutoTransitionsMigrationContainsDueIndex(t *testing.T) {
	content := readMigration(t, "*_create_order_auto_transitions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS order_auto_transitions",
		"scheduled_at TIMESTAMPTZ NOT NULL",
		"is_executed BOOLEAN NOT NULL DEFAULT FALSE",
		"idx_order_auto_transitions_due",
		"WHERE is_executed = FALSE",
		"DROP TABLE IF EXISTS order_auto_transitions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
