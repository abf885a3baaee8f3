package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"workspace-backoffice/internal/domain"
	"workspace-backoffice/internal/infrastructure/payment"
	"workspace-backoffice/internal/repo"
	"workspace-backoffice/internal/service"
)

const sweepBatchSize = 50

// ReconciliationWorker sweeps checkout sessions stuck in INIT. The
// gateway is the source of truth: a session the provider reports as
// paid is materialized into an order (a payment that landed but whose
// webhook never arrived), everything else is expired so it stops
// showing up in sweeps.
type ReconciliationWorker struct {
	sessions   repo.CheckoutSessionRepo
	gateway    payment.Gateway
	checkout   service.CheckoutService
	interval   time.Duration
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewReconciliationWorker(
	sessions repo.CheckoutSessionRepo,
	gateway payment.Gateway,
	checkout service.CheckoutService,
	interval time.Duration,
	staleAfter time.Duration,
	logger *zap.Logger,
) *ReconciliationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationWorker{
		sessions:   sessions,
		gateway:    gateway,
		checkout:   checkout,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reconciliation worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("stale_after", w.staleAfter),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

func (w *ReconciliationWorker) process(ctx context.Context) error {
	stale, err := w.sessions.FindStaleInit(ctx, w.staleAfter, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	w.logger.Info("found stale checkout sessions", zap.Int("count", len(stale)))

	for _, session := range stale {
		paid, err := w.gateway.CheckStatus(ctx, session.GatewaySessionID)
		if err != nil {
			// Leave it for the next sweep.
			w.logger.Warn("gateway status check failed",
				zap.String("session_id", session.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if paid {
			// Paid but never confirmed: materialize the order now.
			if _, err := w.checkout.ConfirmPayment(ctx, session.GatewaySessionID); err != nil {
				w.logger.Error("materialize paid session",
					zap.String("session_id", session.ID.String()),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("recovered paid session", zap.String("session_id", session.ID.String()))
			continue
		}

		if err := w.sessions.UpdateStatus(ctx, session.ID, domain.CheckoutExpired, nil); err != nil {
			w.logger.Error("expire session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("expired abandoned session", zap.String("session_id", session.ID.String()))
	}
	return nil
}
