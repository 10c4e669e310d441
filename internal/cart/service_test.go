package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/pkg/db"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type cartFixture struct {
	svc   Service
	stock inventory.Service
	conn  *gorm.DB
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Inventory{}, &models.StockTransaction{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	client := db.NewWithConn(conn)

	stock, err := inventory.NewService(client, inventory.NewRepository(conn), logg, nil)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, stock, 30*time.Minute, logg)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return &cartFixture{svc: svc, stock: stock, conn: conn}
}

func (f *cartFixture) seedStock(t *testing.T, sizeID uuid.UUID, qty int) {
	t.Helper()
	err := f.stock.ImportStock(context.Background(), inventory.StockMutationInput{
		SizeID:          sizeID,
		Quantity:        qty,
		ReferenceNumber: "SEED-1",
		Actor:           "test",
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (f *cartFixture) available(t *testing.T, sizeID uuid.UUID) int {
	t.Helper()
	available, err := f.stock.AvailableQuantity(context.Background(), sizeID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	return available
}

func TestAddItemReservesStock(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 10)

	item, err := f.svc.AddItem(ctx, AddItemInput{
		CustomerID: customerID,
		SizeID:     sizeID,
		Quantity:   3,
		UnitPrice:  decimal.NewFromFloat(49.90),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.ReservationState != enums.ReservationStatePending {
		t.Fatalf("expected pending reservation, got %s", item.ReservationState)
	}
	if item.ReservedUntil.Before(time.Now().Add(29 * time.Minute)) {
		t.Fatalf("reservation window too short: %v", item.ReservedUntil)
	}

	if got := f.available(t, sizeID); got != 7 {
		t.Fatalf("expected 7 available after reserve, got %d", got)
	}

	items, err := f.svc.ListItems(ctx, customerID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("unexpected cart contents: %+v", items)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 10)

	first, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 2, UnitPrice: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 3, UnitPrice: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected merge into existing line")
	}
	if second.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", second.Quantity)
	}
	if got := f.available(t, sizeID); got != 5 {
		t.Fatalf("expected 5 available, got %d", got)
	}
}

func TestAddItemInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 2)

	_, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 3, UnitPrice: decimal.NewFromInt(10)})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := f.svc.ListItems(ctx, customerID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("failed add must not leave a cart line, got %+v", items)
	}
	if got := f.available(t, sizeID); got != 2 {
		t.Fatalf("failed add must not hold stock, got %d available", got)
	}
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 10)

	item, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 4, UnitPrice: decimal.NewFromInt(15)})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	grown, err := f.svc.UpdateQuantity(ctx, customerID, item.ID, 7)
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	if grown.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", grown.Quantity)
	}
	if got := f.available(t, sizeID); got != 3 {
		t.Fatalf("expected 3 available after grow, got %d", got)
	}

	shrunk, err := f.svc.UpdateQuantity(ctx, customerID, item.ID, 2)
	if err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if shrunk.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", shrunk.Quantity)
	}
	if got := f.available(t, sizeID); got != 8 {
		t.Fatalf("expected 8 available after shrink, got %d", got)
	}

	if _, err := f.svc.UpdateQuantity(ctx, customerID, item.ID, 20); err == nil {
		t.Fatal("expected insufficient stock when growing past available")
	}
	if got := f.available(t, sizeID); got != 8 {
		t.Fatalf("failed grow must not change availability, got %d", got)
	}
}

func TestRemoveItemReleasesReservation(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 6)

	item, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 4, UnitPrice: decimal.NewFromInt(12)})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := f.svc.RemoveItem(ctx, customerID, item.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if got := f.available(t, sizeID); got != 6 {
		t.Fatalf("expected full availability restored, got %d", got)
	}

	if err := f.svc.RemoveItem(ctx, customerID, item.ID); err == nil {
		t.Fatal("expected not found for removed item")
	}
}

func TestRemoveConfirmedItemDoesNotTouchLedger(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeID := uuid.New()
	f.seedStock(t, sizeID, 6)

	item, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeID, Quantity: 2, UnitPrice: decimal.NewFromInt(12)})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Checkout already confirmed this line.
	if err := f.conn.Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Update("reservation_state", enums.ReservationStateConfirmed).Error; err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}

	if err := f.svc.RemoveItem(ctx, customerID, item.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if got := f.available(t, sizeID); got != 4 {
		t.Fatalf("removing a confirmed line must not release stock, got %d available", got)
	}
}

func TestClearCart(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	sizeA := uuid.New()
	sizeB := uuid.New()
	f.seedStock(t, sizeA, 5)
	f.seedStock(t, sizeB, 5)

	if _, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeA, Quantity: 2, UnitPrice: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: sizeB, Quantity: 3, UnitPrice: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("add b: %v", err)
	}

	if err := f.svc.ClearCart(ctx, customerID); err != nil {
		t.Fatalf("clear cart: %v", err)
	}

	items, err := f.svc.ListItems(ctx, customerID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
	if f.available(t, sizeA) != 5 || f.available(t, sizeB) != 5 {
		t.Fatal("expected all stock released after clear")
	}
}

func TestExpireReservations(t *testing.T) {
	t.Parallel()

	f := newCartFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	staleSize := uuid.New()
	freshSize := uuid.New()
	f.seedStock(t, staleSize, 5)
	f.seedStock(t, freshSize, 5)

	stale, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: staleSize, Quantity: 2, UnitPrice: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("add stale: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, AddItemInput{CustomerID: customerID, SizeID: freshSize, Quantity: 3, UnitPrice: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("add fresh: %v", err)
	}

	// Age the first reservation past its window.
	if err := f.conn.Model(&models.CartItem{}).
		Where("id = ?", stale.ID).
		Update("reserved_until", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age reservation: %v", err)
	}

	expired, err := f.svc.ExpireReservations(ctx, time.Now())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired reservation, got %d", expired)
	}
	if got := f.available(t, staleSize); got != 5 {
		t.Fatalf("expected stale stock released, got %d available", got)
	}
	if got := f.available(t, freshSize); got != 2 {
		t.Fatalf("fresh reservation must survive the sweep, got %d available", got)
	}

	// The sweep is idempotent.
	expired, err = f.svc.ExpireReservations(ctx, time.Now())
	if err != nil {
		t.Fatalf("second expire: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected nothing left to expire, got %d", expired)
	}
}
