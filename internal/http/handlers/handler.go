package handlers

import (
	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/booking"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/config"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/events"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/export"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/jobs"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/lock"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/payments"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/rating"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/scan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

type Handler struct {
	Store     store.Store
	Ledger    store.PaymentLedger
	Locks     lock.Store
	LockOpts  lock.Options
	Jobs      *jobs.System
	Booking   *booking.Client
	Payments  *payments.Service
	Ratings   *rating.Service
	Tokenizer *scan.Tokenizer
	Exporter  *export.Exporter
	Events    *events.Sink
	Logger    *zap.Logger
	Config    config.Config
}
