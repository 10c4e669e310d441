package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvfashion/backend/api/responses"
	"github.com/dvfashion/backend/api/validators"
	"github.com/dvfashion/backend/internal/autotransition"
	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

type orderItemResponse struct {
	SizeID          uuid.UUID       `json:"size_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ReferenceNumber string          `json:"reference_number"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	Status      string              `json:"status"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Total       decimal.Decimal     `json:"total"`
	Items       []orderItemResponse `json:"items"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	CanceledAt  *time.Time          `json:"canceled_at,omitempty"`
	ReturnedAt  *time.Time          `json:"returned_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type transitionRequest struct {
	Target string `json:"target" validate:"required"`
}

type autoTransitionResponse struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	TransitionType  string     `json:"transition_type"`
	FromStatus      string     `json:"from_status"`
	ToStatus        string     `json:"to_status"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	IsExecuted      bool       `json:"is_executed"`
	ExecutedAt      *time.Time `json:"executed_at,omitempty"`
	ExecutionResult *string    `json:"execution_result,omitempty"`
}

func toOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			SizeID:          item.SizeID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			ReferenceNumber: item.ReferenceNumber,
		})
	}
	return orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Subtotal:    order.Subtotal,
		Total:       order.Total,
		Items:       items,
		ConfirmedAt: order.ConfirmedAt,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		CanceledAt:  order.CanceledAt,
		ReturnedAt:  order.ReturnedAt,
		CreatedAt:   order.CreatedAt,
	}
}

func toAutoTransitionResponses(rows []models.OrderAutoTransition) []autoTransitionResponse {
	out := make([]autoTransitionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, autoTransitionResponse{
			ID:              row.ID,
			OrderID:         row.OrderID,
			TransitionType:  string(row.TransitionType),
			FromStatus:      string(row.FromStatus),
			ToStatus:        string(row.ToStatus),
			ScheduledAt:     row.ScheduledAt,
			IsExecuted:      row.IsExecuted,
			ExecutedAt:      row.ExecutedAt,
			ExecutionResult: row.ExecutionResult,
		})
	}
	return out
}

// retireAndChain settles scheduling after a manual status change: pending
// rows aimed at the old status are stale now, and the new status may carry
// its own follow-up. Best effort; the status change already committed.
func retireAndChain(ctx context.Context, sched autotransition.Scheduler, logg *logger.Logger, order *models.Order) {
	if sched == nil {
		return
	}
	if _, err := sched.Cancel(ctx, order.ID); err != nil {
		logg.Error(ctx, "canceling pending auto transitions failed", err)
	}
	if _, err := sched.ScheduleNextFor(ctx, order, time.Now()); err != nil {
		logg.Error(ctx, "scheduling follow-up auto transition failed", err)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

// OrderList returns the customer's orders, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]orderResponse, 0, len(list))
		for i := range list {
			out = append(out, toOrderResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns one order after checking it belongs to the caller.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.CustomerID != customerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// OrderCancel cancels the caller's own order where the lifecycle allows it.
func OrderCancel(svc orders.Service, sched autotransition.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.CustomerID != customerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		updated, err := svc.Transition(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Target:  enums.OrderStatusCanceled,
			Actor:   "customer:" + customerID.String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		retireAndChain(r.Context(), sched, logg, updated)
		responses.WriteSuccess(w, toOrderResponse(updated))
	}
}

// AdminOrderTransition moves an order to the requested status. Pending
// scheduled transitions for the old status are retired and the follow-up
// for the new status is queued.
func AdminOrderTransition(svc orders.Service, sched autotransition.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(r.Context(), orders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Actor:   requestActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		retireAndChain(r.Context(), sched, logg, order)
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// AdminOrderAutoTransitions lists the scheduled transition audit trail for an order.
func AdminOrderAutoTransitions(sched autotransition.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := sched.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAutoTransitionResponses(rows))
	}
}

// AdminOrderAutoTransitionCancel retires every pending scheduled transition
// for an order.
func AdminOrderAutoTransitionCancel(sched autotransition.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		canceled, err := sched.Cancel(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"canceled": canceled})
	}
}
