package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dvfashion/backend/api/responses"
	"github.com/dvfashion/backend/api/validators"
	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/pkg/db/models"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

const (
	actorHeader        = "X-Actor"
	defaultAdminActor  = "admin"
	defaultHistorySize = 50
	maxHistorySize     = 500
)

type stockMutationRequest struct {
	SizeID          uuid.UUID `json:"size_id" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,gt=0"`
	ReferenceNumber string    `json:"reference_number" validate:"required"`
	Notes           *string   `json:"notes,omitempty"`
}

type stockAdjustRequest struct {
	SizeID          uuid.UUID `json:"size_id" validate:"required"`
	Delta           int       `json:"delta" validate:"required"`
	ReferenceNumber string    `json:"reference_number" validate:"required"`
	Notes           *string   `json:"notes,omitempty"`
}

type inventoryResponse struct {
	SizeID            uuid.UUID `json:"size_id"`
	QuantityInStock   int       `json:"quantity_in_stock"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	MinStockLevel     int       `json:"min_stock_level"`
	LastUpdated       time.Time `json:"last_updated"`
}

type stockTransactionResponse struct {
	ID              uuid.UUID  `json:"id"`
	SizeID          uuid.UUID  `json:"size_id"`
	Type            string     `json:"type"`
	Quantity        int        `json:"quantity"`
	StockDelta      int        `json:"stock_delta"`
	ReservedDelta   int        `json:"reserved_delta"`
	ReferenceNumber string     `json:"reference_number"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	Actor           string     `json:"actor"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toInventoryResponse(inv *models.Inventory) inventoryResponse {
	return inventoryResponse{
		SizeID:            inv.SizeID,
		QuantityInStock:   inv.QuantityInStock,
		ReservedQuantity:  inv.ReservedQuantity,
		AvailableQuantity: inv.AvailableQuantity(),
		MinStockLevel:     inv.MinStockLevel,
		LastUpdated:       inv.LastUpdated,
	}
}

func toInventoryResponses(items []models.Inventory) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(items))
	for i := range items {
		out = append(out, toInventoryResponse(&items[i]))
	}
	return out
}

func toTransactionResponses(rows []models.StockTransaction) []stockTransactionResponse {
	out := make([]stockTransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, stockTransactionResponse{
			ID:              row.ID,
			SizeID:          row.SizeID,
			Type:            string(row.Type),
			Quantity:        row.Quantity,
			StockDelta:      row.StockDelta,
			ReservedDelta:   row.ReservedDelta,
			ReferenceNumber: row.ReferenceNumber,
			OrderID:         row.OrderID,
			Actor:           row.Actor,
			Notes:           row.Notes,
			CreatedAt:       row.CreatedAt,
		})
	}
	return out
}

func requestActor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
		return actor
	}
	return defaultAdminActor
}

func parseSizeID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "sizeId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "size id is required")
	}
	sizeID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid size id")
	}
	return sizeID, nil
}

// StockImport receives a delivery into the ledger.
func StockImport(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockMutationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.StockMutationInput{
			SizeID:          req.SizeID,
			Quantity:        req.Quantity,
			ReferenceNumber: req.ReferenceNumber,
			Actor:           requestActor(r),
			Notes:           req.Notes,
		}
		if err := svc.ImportStock(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.GetBySize(r.Context(), req.SizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponse(inv))
	}
}

// StockExport removes unreserved stock from the ledger.
func StockExport(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockMutationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.StockMutationInput{
			SizeID:          req.SizeID,
			Quantity:        req.Quantity,
			ReferenceNumber: req.ReferenceNumber,
			Actor:           requestActor(r),
			Notes:           req.Notes,
		}
		if err := svc.ExportStock(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.GetBySize(r.Context(), req.SizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponse(inv))
	}
}

// StockAdjust corrects on-hand stock by a signed delta.
func StockAdjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.AdjustStockInput{
			SizeID:          req.SizeID,
			Delta:           req.Delta,
			ReferenceNumber: req.ReferenceNumber,
			Actor:           requestActor(r),
			Notes:           req.Notes,
		}
		if err := svc.AdjustStock(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.GetBySize(r.Context(), req.SizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponse(inv))
	}
}

// StockDetail returns the ledger row for one size.
func StockDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sizeID, err := parseSizeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inv, err := svc.GetBySize(r.Context(), sizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponse(inv))
	}
}

// StockAvailability answers whether the requested quantity can be reserved.
func StockAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sizeID, err := parseSizeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := svc.AvailableQuantity(r.Context(), sizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"size_id":   sizeID,
			"requested": quantity,
			"available": available,
			"in_stock":  available >= quantity,
		})
	}
}

// StockHistory lists the most recent stock transactions for one size.
func StockHistory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sizeID, err := parseSizeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultHistorySize, 1, maxHistorySize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.TransactionHistory(r.Context(), sizeID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTransactionResponses(rows))
	}
}

// StockReport summarizes the catalog for the admin dashboard.
func StockReport(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// StockLowList returns sizes at or below their reorder level.
func StockLowList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.LowStockItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponses(items))
	}
}

// StockOutList returns sizes with nothing left to sell.
func StockOutList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.OutOfStockItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryResponses(items))
	}
}
