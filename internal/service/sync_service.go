package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"printful-sync/internal/broker"
	"printful-sync/internal/models"
	"printful-sync/internal/printful"
	"printful-sync/internal/reconcile"
	"printful-sync/internal/redisclient"
	"printful-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSyncInProgress is returned when another run already holds the sync lock
// for the requested product.
var ErrSyncInProgress = errors.New("sync already in progress for this product")

// SyncService orchestrates one reconciliation run per product: lock, fetch,
// snapshot, plan, execute, publish. Runs for the same product are serialized
// by a Redis lock; runs for different products are independent.
type SyncService struct {
	catalog    reconcile.CatalogStore
	printful   *printful.Client
	fetcher    *reconcile.Fetcher
	reconciler *reconcile.Reconciler
	executor   *reconcile.Executor
	locks      *redisclient.Client
	events     *broker.EventPublisher
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewSyncService creates the sync orchestrator. locks and events may be nil
// in tests.
func NewSyncService(
	catalog reconcile.CatalogStore,
	pf *printful.Client,
	fetcher *reconcile.Fetcher,
	reconciler *reconcile.Reconciler,
	executor *reconcile.Executor,
	locks *redisclient.Client,
	events *broker.EventPublisher,
	lockTTL time.Duration,
) *SyncService {
	return &SyncService{
		catalog:    catalog,
		printful:   pf,
		fetcher:    fetcher,
		reconciler: reconciler,
		executor:   executor,
		locks:      locks,
		events:     events,
		lockTTL:    lockTTL,
		logger:     util.GetLogger(),
	}
}

// RequestSync publishes a sync request for asynchronous processing by the
// sync worker.
func (s *SyncService) RequestSync(ctx context.Context, externalID, reason string) error {
	if s.events == nil {
		return errors.New("event publisher not configured")
	}
	event := &models.SyncRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSyncRequested,
			Timestamp: time.Now(),
		},
		ProductExternalID: externalID,
		Reason:            reason,
	}
	return s.events.PublishSyncRequested(ctx, event)
}

// NotifyPackageShipped publishes a package-shipped event for asynchronous
// processing by the fulfillment worker.
func (s *SyncService) NotifyPackageShipped(ctx context.Context, orderExternalID string, remoteOrderID int64, trackingNumber string) error {
	if s.events == nil {
		return errors.New("event publisher not configured")
	}
	event := &models.PackageShippedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePackageShipped,
			Timestamp: time.Now(),
		},
		OrderExternalID: orderExternalID,
		RemoteOrderID:   remoteOrderID,
		TrackingNumbers: []string{trackingNumber},
	}
	return s.events.PublishPackageShipped(ctx, event)
}

// SyncProduct reconciles one Printful product family into the local catalog.
// externalID is the Printful sync-product id. Returns ErrSyncInProgress when
// a concurrent run holds the product's lock.
func (s *SyncService) SyncProduct(ctx context.Context, externalID string) (*reconcile.Result, error) {
	ctx, span := util.StartSpan(ctx, "SyncService.SyncProduct")
	defer span.End()

	if s.locks != nil {
		ok, err := s.locks.AcquireSyncLock(ctx, externalID, s.lockTTL)
		if err != nil {
			s.logger.Warn("Sync lock unavailable, proceeding unguarded",
				zap.String("external_id", externalID),
				zap.Error(err))
		} else if !ok {
			return nil, ErrSyncInProgress
		} else {
			defer func() {
				if err := s.locks.ReleaseSyncLock(context.Background(), externalID); err != nil {
					s.logger.Warn("Failed to release sync lock",
						zap.String("external_id", externalID),
						zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	res, err := s.run(ctx, externalID)
	util.SyncRunDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		util.SyncRunsTotal.WithLabelValues("failed").Inc()
		s.publishFailed(ctx, externalID, err)
		return nil, err
	}

	result := "success"
	if len(res.Failures) > 0 {
		result = "partial"
	}
	util.SyncRunsTotal.WithLabelValues(result).Inc()
	s.publishSynced(ctx, externalID, res)

	s.logger.Info("Product reconciled",
		zap.String("external_id", externalID),
		zap.String("product_id", res.ProductID),
		zap.Bool("created", res.Created),
		zap.Int("executed", res.Executed),
		zap.Int("failed_ops", len(res.Failures)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (s *SyncService) run(ctx context.Context, externalID string) (*reconcile.Result, error) {
	remote, err := s.printful.GetSyncProduct(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", externalID, err)
	}

	snap, err := s.fetcher.Snapshot(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("snapshot product %s: %w", externalID, err)
	}

	canonicalID := strconv.FormatInt(remote.SyncProduct.ID, 10)
	local, err := s.catalog.GetProductByExternalID(ctx, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", canonicalID, err)
	}

	var plan *models.OperationPlan
	if local == nil {
		plan = s.reconciler.PlanCreate(snap)
	} else {
		plan = s.reconciler.PlanUpdate(snap, local)
	}

	for _, sk := range plan.Skipped {
		s.logger.Warn("Variant skipped",
			zap.String("external_id", canonicalID),
			zap.String("variant_external_id", sk.ExternalID),
			zap.String("reason", sk.Reason))
	}

	return s.executor.Execute(ctx, plan)
}

// DeleteProduct removes a local product and everything it owns.
func (s *SyncService) DeleteProduct(ctx context.Context, productID string) error {
	ctx, span := util.StartSpan(ctx, "SyncService.DeleteProduct")
	defer span.End()
	return s.catalog.DeleteProduct(ctx, productID)
}

// DeleteVariant removes a single local variant.
func (s *SyncService) DeleteVariant(ctx context.Context, variantID string) error {
	ctx, span := util.StartSpan(ctx, "SyncService.DeleteVariant")
	defer span.End()
	return s.catalog.DeleteVariant(ctx, variantID)
}

func (s *SyncService) publishSynced(ctx context.Context, externalID string, res *reconcile.Result) {
	if s.events == nil {
		return
	}
	event := &models.ProductSyncedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductSynced,
			Timestamp: time.Now(),
		},
		ProductExternalID: externalID,
		LocalProductID:    res.ProductID,
		Created:           res.Created,
		VariantsCreated:   res.VariantsCreated,
		VariantsUpdated:   res.VariantsUpdated,
		VariantsDeleted:   res.VariantsDeleted,
		FailedOps:         len(res.Failures),
	}
	if err := s.events.PublishProductSynced(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductSynced event", zap.Error(err))
	}
}

func (s *SyncService) publishFailed(ctx context.Context, externalID string, cause error) {
	if s.events == nil {
		return
	}
	event := &models.ProductSyncFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductSyncFailed,
			Timestamp: time.Now(),
		},
		ProductExternalID: externalID,
		Reason:            cause.Error(),
	}
	if err := s.events.PublishProductSyncFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductSyncFailed event", zap.Error(err))
	}
}
