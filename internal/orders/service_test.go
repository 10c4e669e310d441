package orders

import (
	"context"
	"io"
	"testing"

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

type orderFixture struct {
	svc   Service
	stock inventory.Service
	conn  *gorm.DB
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Inventory{}, &models.StockTransaction{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	client := db.NewWithConn(conn)

	stock, err := inventory.NewService(client, inventory.NewRepository(conn), logg, nil)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	svc, err := NewService(NewRepository(conn), client, stock, logg)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	return &orderFixture{svc: svc, stock: stock, conn: conn}
}

// newPendingOrder seeds stock, reserves it, and creates a pending order
// holding that reservation, the state checkout leaves behind.
func (f *orderFixture) newPendingOrder(t *testing.T, qty, stocked int) (*models.Order, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	sizeID := uuid.New()
	reference := "RSV-" + uuid.NewString()[:8]

	if err := f.stock.ImportStock(ctx, inventory.StockMutationInput{
		SizeID: sizeID, Quantity: stocked, ReferenceNumber: "SEED-1", Actor: "test",
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	ok, err := f.stock.Reserve(ctx, inventory.StockMutationInput{
		SizeID: sizeID, Quantity: qty, ReferenceNumber: reference, Actor: "test",
	})
	if err != nil || !ok {
		t.Fatalf("reserve: ok=%v err=%v", ok, err)
	}

	order := &models.Order{
		OrderNumber: NewOrderNumber(),
		CustomerID:  uuid.New(),
		Status:      enums.OrderStatusPending,
		Subtotal:    decimal.NewFromInt(100),
		Total:       decimal.NewFromInt(100),
		Items: []models.OrderItem{{
			SizeID:          sizeID,
			ProductName:     "Linen Shirt",
			Quantity:        qty,
			UnitPrice:       decimal.NewFromInt(50),
			ReferenceNumber: reference,
		}},
	}
	if err := NewRepository(f.conn).Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order, sizeID
}

func (f *orderFixture) inventoryRow(t *testing.T, sizeID uuid.UUID) models.Inventory {
	t.Helper()
	var inv models.Inventory
	if err := f.conn.First(&inv, "size_id = ?", sizeID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return inv
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed},
		{enums.OrderStatusPending, enums.OrderStatusCanceled},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
		{enums.OrderStatusConfirmed, enums.OrderStatusCanceled},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped},
		{enums.OrderStatusProcessing, enums.OrderStatusCanceled},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered},
		{enums.OrderStatusShipped, enums.OrderStatusReturned},
		{enums.OrderStatusDelivered, enums.OrderStatusReturned},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	disallowed := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusShipped},
		{enums.OrderStatusPending, enums.OrderStatusDelivered},
		{enums.OrderStatusConfirmed, enums.OrderStatusPending},
		{enums.OrderStatusShipped, enums.OrderStatusCanceled},
		{enums.OrderStatusDelivered, enums.OrderStatusCanceled},
		{enums.OrderStatusCanceled, enums.OrderStatusConfirmed},
		{enums.OrderStatusReturned, enums.OrderStatusPending},
		{enums.OrderStatusPending, enums.OrderStatusPending},
	}
	for _, tc := range disallowed {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestConfirmConsumesReservedStock(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 3, 10)

	updated, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusConfirmed, Actor: "payments"})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.ConfirmedAt == nil {
		t.Fatal("expected confirmed timestamp")
	}

	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 7 || inv.ReservedQuantity != 0 {
		t.Fatalf("expected (7,0) after confirm, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

func TestCancelPendingReleasesReservation(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 3, 10)

	updated, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusCanceled, Actor: "customer"})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.CanceledAt == nil {
		t.Fatal("expected canceled timestamp")
	}

	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 10 || inv.ReservedQuantity != 0 {
		t.Fatalf("expected (10,0) after cancel, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

func TestCancelConfirmedRestocks(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 3, 10)

	if _, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusConfirmed, Actor: "payments"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusCanceled, Actor: "support"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 10 || inv.ReservedQuantity != 0 {
		t.Fatalf("expected (10,0) after cancel-confirmed, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

func TestFullLifecycleWithReturn(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 2, 5)

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusReturned,
	} {
		if _, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: target, Actor: "test"}); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	final, err := f.svc.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if final.Status != enums.OrderStatusReturned {
		t.Fatalf("expected returned, got %s", final.Status)
	}
	if final.ShippedAt == nil || final.DeliveredAt == nil || final.ReturnedAt == nil {
		t.Fatalf("expected lifecycle timestamps, got %+v", final)
	}

	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 5 || inv.ReservedQuantity != 0 {
		t.Fatalf("expected full restock after return, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

// A package refused at the door comes back without ever being delivered.
func TestReturnFromShippedRestocks(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 2, 5)

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	} {
		if _, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: target, Actor: "test"}); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	updated, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusReturned, Actor: "logistics"})
	if err != nil {
		t.Fatalf("return from shipped: %v", err)
	}
	if updated.Status != enums.OrderStatusReturned {
		t.Fatalf("expected returned, got %s", updated.Status)
	}
	if updated.ReturnedAt == nil || updated.DeliveredAt != nil {
		t.Fatalf("expected returned stamp without delivery, got %+v", updated)
	}

	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 5 || inv.ReservedQuantity != 0 {
		t.Fatalf("expected full restock after return, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

func TestDisallowedTransitionRejected(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	order, sizeID := f.newPendingOrder(t, 2, 5)

	_, err := f.svc.Transition(ctx, TransitionInput{OrderID: order.ID, Target: enums.OrderStatusShipped, Actor: "test"})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// Rejected transitions must not touch the ledger.
	inv := f.inventoryRow(t, sizeID)
	if inv.QuantityInStock != 5 || inv.ReservedQuantity != 2 {
		t.Fatalf("expected (5,2) untouched, got (%d,%d)", inv.QuantityInStock, inv.ReservedQuantity)
	}
}

func TestTransitionValidation(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input TransitionInput
	}{
		{name: "missing order id", input: TransitionInput{Target: enums.OrderStatusConfirmed, Actor: "a"}},
		{name: "invalid status", input: TransitionInput{OrderID: uuid.New(), Target: enums.OrderStatus("nope"), Actor: "a"}},
		{name: "missing actor", input: TransitionInput{OrderID: uuid.New(), Target: enums.OrderStatusConfirmed}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Transition(ctx, tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	if _, err := f.svc.Transition(ctx, TransitionInput{OrderID: uuid.New(), Target: enums.OrderStatusConfirmed, Actor: "a"}); err == nil {
		t.Fatal("expected not found for unknown order")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}
