package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvfashion/backend/api/middleware"
	"github.com/dvfashion/backend/api/responses"
	"github.com/dvfashion/backend/api/validators"
	"github.com/dvfashion/backend/internal/cart"
	"github.com/dvfashion/backend/pkg/db/models"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type cartAddRequest struct {
	SizeID      uuid.UUID       `json:"size_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type cartItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	SizeID          uuid.UUID       `json:"size_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
	ReferenceNumber string          `json:"reference_number"`
	ReservedUntil   time.Time       `json:"reserved_until"`
}

type cartResponse struct {
	Items    []cartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func toCartItemResponse(item *models.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:              item.ID,
		SizeID:          item.SizeID,
		ProductName:     item.ProductName,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		LineTotal:       item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		ReferenceNumber: item.ReferenceNumber,
		ReservedUntil:   item.ReservedUntil,
	}
}

func toCartResponse(items []models.CartItem) cartResponse {
	out := cartResponse{Items: make([]cartItemResponse, 0, len(items)), Subtotal: decimal.Zero}
	for i := range items {
		line := toCartItemResponse(&items[i])
		out.Items = append(out.Items, line)
		out.Subtotal = out.Subtotal.Add(line.LineTotal)
	}
	return out
}

func customerFromRequest(r *http.Request) (uuid.UUID, error) {
	customerID, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "customer context missing")
	}
	return customerID, nil
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	itemID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return itemID, nil
}

// CartList returns the customer's pending cart lines.
func CartList(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListItems(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartResponse(items))
	}
}

// CartAdd reserves stock and adds the line to the cart.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartAddRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), cart.AddItemInput{
			CustomerID:  customerID,
			SizeID:      req.SizeID,
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toCartItemResponse(item))
	}
}

// CartUpdateQuantity resizes a cart line.
func CartUpdateQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateQuantity(r.Context(), customerID, itemID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartItemResponse(item))
	}
}

// CartRemove releases the line's reservation and deletes it.
func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), customerID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CartClear empties the cart, releasing every reservation.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ClearCart(r.Context(), customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
