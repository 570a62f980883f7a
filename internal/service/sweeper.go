package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sendit-labs/sendit-server/internal/repositories"
)

// Sweeper purges expired transfers: blobs best-effort first, then metadata.
// A sweep is idempotent and safe to run concurrently with other sweeps;
// every run re-queries current expiry state instead of holding a lock, and
// deleting already-gone rows or blobs counts as success.
type Sweeper struct {
	store *repositories.TransferRepository
	blobs BlobStore
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewSweeper(store *repositories.TransferRepository, blobs BlobStore, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		store: store,
		blobs: blobs,
		log:   log,
		now:   time.Now,
	}
}

// Sweep runs one cleanup pass and returns the number of transfers removed.
// A storage-deletion failure is logged and does not abort the pass;
// retaining unreachable metadata over a transient storage outage would be
// worse than leaking orphaned blobs, which a separate offline job can
// reclaim. Only a metadata store failure abandons the sweep, to be retried
// on the next trigger.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	expired, err := s.store.ExpiredTransfers(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired transfers: %w", err)
	}
	if len(expired) == 0 {
		s.log.Debug("no expired transfers to clean up")
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, t := range expired {
		ids = append(ids, t.ID)
	}

	paths, err := s.store.StoragePaths(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("collect storage paths: %w", err)
	}

	if len(paths) > 0 {
		if err := s.blobs.DeleteMany(ctx, paths); err != nil {
			s.log.WithError(err).Warn("blob deletion incomplete, continuing with metadata cleanup")
		}
	}

	// The expiry predicate is re-evaluated at delete time, so transfers
	// that expired since the listing above are swept in the same pass.
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired transfers: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"transfers": removed,
		"blobs":     len(paths),
	}).Info("cleanup pass complete")
	return removed, nil
}

// Run invokes Sweep on a fixed interval until ctx is canceled. The first
// pass runs immediately. The loop tolerates any cadence relative to the
// transfer TTL; a missed or doubled tick only shifts when a transfer moves
// from logically expired to physically purged.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.log.WithField("interval", interval).Info("cleanup sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.WithError(err).Error("cleanup pass failed")
		}
		select {
		case <-ctx.Done():
			s.log.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
