package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/ordering"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
	"github.com/Kerhoff/ShelfBoT/pkg/logger"
)

// StartPositionAuditor runs a background loop that renumbers drifted list
// and item positions every interval. It blocks until the context is
// cancelled, so it should be launched in a separate goroutine. A
// non-positive interval disables it.
func (s *Service) StartPositionAuditor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.WithField("interval", interval).Warn("Position auditor disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithField("interval", interval).Info("Position auditor started")

	s.AuditPositions(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Position auditor stopped")
			return
		case <-ticker.C:
			s.AuditPositions(ctx)
		}
	}
}

// AuditPositions repairs every owner and list whose positions are not
// contiguous. Each repair runs in its own transaction; failures are logged
// and the remaining repairs still run. It returns the number of repairs.
func (s *Service) AuditPositions(ctx context.Context) int {
	log := logger.Component(s.logger, "position_auditor")
	repaired := 0

	owners, err := s.store.DriftedOwners(ctx)
	if err != nil {
		log.Errorf("Failed to find drifted owners: %v", err)
	}
	for _, ownerID := range owners {
		if err := s.repairOwner(ctx, ownerID); err != nil {
			log.WithError(err).WithField("owner_id", ownerID).Error("Failed to repair list positions")
			continue
		}
		s.metrics.RecordRepair("owner_lists")
		repaired++
	}

	lists, err := s.store.DriftedLists(ctx)
	if err != nil {
		log.Errorf("Failed to find drifted lists: %v", err)
	}
	for _, listID := range lists {
		if err := s.repairList(ctx, listID); err != nil {
			log.WithError(err).WithField("list_id", listID).Error("Failed to repair item positions")
			continue
		}
		s.metrics.RecordRepair("list_items")
		repaired++
	}

	if repaired > 0 {
		log.WithFields(logrus.Fields{
			"owners": len(owners),
			"lists":  len(lists),
		}).Warn("Repaired drifted positions")
	}
	return repaired
}

func (s *Service) repairOwner(ctx context.Context, ownerID int64) error {
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err := tx.LockOwnerLists(ctx, ownerID)
		if err != nil {
			return err
		}
		return s.normalizeLists(ctx, tx, lists)
	})
}

func (s *Service) repairList(ctx context.Context, listID int64) error {
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockList(ctx, listID)
		if err != nil || list == nil {
			return err
		}
		items, err := tx.LockItems(ctx, listID)
		if err != nil {
			return err
		}
		entries := itemEntries(items)
		return tx.SetItemPositions(ctx, listID, ordering.Changed(entries, ordering.Positions(ordering.Compact(entries))))
	})
}
