package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dvfashion/backend/pkg/logger"
)

type reservationReclaimer interface {
	ExpireReservations(ctx context.Context, now time.Time) (int, error)
}

// ReservationExpiryJobParams configure the reservation expiry sweep.
type ReservationExpiryJobParams struct {
	Logger *logger.Logger
	Cart   reservationReclaimer
}

// NewReservationExpiryJob builds the job that reclaims stock from cart
// reservations whose hold window has passed.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &reservationExpiryJob{
		logg: params.Logger,
		cart: params.Cart,
		now:  time.Now,
	}, nil
}

type reservationExpiryJob struct {
	logg *logger.Logger
	cart reservationReclaimer
	now  func() time.Time
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

func (j *reservationExpiryJob) Run(ctx context.Context) error {
	expired, err := j.cart.ExpireReservations(ctx, j.now().UTC())
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	if err != nil {
		return fmt.Errorf("expire reservations: %w", err)
	}
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return nil
}
