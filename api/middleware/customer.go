package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dvfashion/backend/api/responses"
	pkgerrors "github.com/dvfashion/backend/pkg/errors"
	"github.com/dvfashion/backend/pkg/logger"
)

const customerIDHeader = "X-Customer-Id"

type customerIDKey struct{}

// CustomerContext resolves the calling customer from the X-Customer-Id
// header set by the gateway. Routes behind it can rely on a parsed ID.
func CustomerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(customerIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer id header is required"))
				return
			}
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id header"))
				return
			}

			ctx := context.WithValue(r.Context(), customerIDKey{}, customerID)
			if logg != nil {
				ctx = logg.WithField(ctx, "customer_id", customerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithCustomerID injects a customer ID directly, bypassing the header.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	return context.WithValue(ctx, customerIDKey{}, customerID)
}

// CustomerIDFromContext returns the customer ID resolved by CustomerContext.
func CustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(customerIDKey{}).(uuid.UUID)
	return id, ok
}
