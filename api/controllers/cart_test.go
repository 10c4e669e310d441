package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvfashion/backend/api/middleware"
	cartsvc "github.com/dvfashion/backend/internal/cart"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
)

type stubCartService struct {
	item         *models.CartItem
	items        []models.CartItem
	err          error
	lastAddInput cartsvc.AddItemInput
}

func (s *stubCartService) AddItem(_ context.Context, input cartsvc.AddItemInput) (*models.CartItem, error) {
	s.lastAddInput = input
	return s.item, s.err
}

func (s *stubCartService) UpdateQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*models.CartItem, error) {
	return s.item, s.err
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) error { return s.err }

func (s *stubCartService) ClearCart(context.Context, uuid.UUID) error { return s.err }

func (s *stubCartService) ListItems(context.Context, uuid.UUID) ([]models.CartItem, error) {
	return s.items, s.err
}

func (s *stubCartService) ExpireReservations(context.Context, time.Time) (int, error) {
	return 0, s.err
}

func withCustomer(req *http.Request, customerID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithCustomerID(req.Context(), customerID))
}

func TestCartAddSuccess(t *testing.T) {
	customerID := uuid.New()
	sizeID := uuid.New()
	stub := &stubCartService{item: &models.CartItem{
		ID:               uuid.New(),
		CustomerID:       customerID,
		SizeID:           sizeID,
		ProductName:      "Denim Jacket",
		Quantity:         2,
		UnitPrice:        decimal.NewFromInt(30),
		ReferenceNumber:  "RSV-ABCD1234",
		ReservationState: enums.ReservationStatePending,
	}}
	handler := CartAdd(stub, nil)

	body := `{"size_id":"` + sizeID.String() + `","product_name":"Denim Jacket","quantity":2,"unit_price":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = withCustomer(req, customerID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if stub.lastAddInput.CustomerID != customerID || stub.lastAddInput.Quantity != 2 {
		t.Fatalf("unexpected service input: %+v", stub.lastAddInput)
	}

	var envelope struct {
		Data cartItemResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.LineTotal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected line total 60, got %s", envelope.Data.LineTotal)
	}
}

func TestCartAddInsufficientStock(t *testing.T) {
	stub := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock")}
	handler := CartAdd(stub, nil)

	body := `{"size_id":"` + uuid.NewString() + `","product_name":"Denim Jacket","quantity":5,"unit_price":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = withCustomer(req, uuid.New())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestCartAddRejectsBadBody(t *testing.T) {
	handler := CartAdd(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"quantity":0}`))
	req = withCustomer(req, uuid.New())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartListMissingCustomerContext(t *testing.T) {
	handler := CartList(&stubCartService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartListSumsSubtotal(t *testing.T) {
	customerID := uuid.New()
	stub := &stubCartService{items: []models.CartItem{
		{ID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(30)},
		{ID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
	}}
	handler := CartList(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = withCustomer(req, customerID)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Subtotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected subtotal 100, got %s", envelope.Data.Subtotal)
	}
}
