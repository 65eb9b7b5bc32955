// Package lifecycle transitions investments across quarter boundaries:
// archiving records whose quarter has ended and creating successor records
// with the accrued return folded into the principal.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rgeorgiou/quarterbook/internal/domain"
	"github.com/rgeorgiou/quarterbook/internal/quarter"
)

// InvestmentStore is the slice of the investment repository the manager needs.
type InvestmentStore interface {
	FindActiveDue(asOf time.Time) ([]domain.Investment, error)
	FindArchivedWithoutSuccessor() ([]domain.Investment, error)
	HasSuccessor(id int64) (bool, error)
	BulkSetArchived(label string) (int64, error)
	Archive(id int64) error
	Create(inv *domain.Investment) error
}

// Manager owns the archive and rollover transitions. Each record moves
// through them once: ACTIVE -> ARCHIVED is terminal, and the successor is a
// new record pointing back at its predecessor, never a mutation of it.
type Manager struct {
	investments InvestmentStore
	log         zerolog.Logger
	now         func() time.Time
}

// NewManager creates a quarter lifecycle manager.
func NewManager(investments InvestmentStore, log zerolog.Logger) *Manager {
	return &Manager{
		investments: investments,
		log:         log.With().Str("component", "lifecycle").Logger(),
		now:         time.Now,
	}
}

// ArchiveDueInvestments bulk-archives every non-archived investment in the
// given quarter. Idempotent: a second call matches nothing and changes
// nothing. Returns the number of investments archived.
func (m *Manager) ArchiveDueInvestments(label string) (int64, error) {
	n, err := m.investments.BulkSetArchived(label)
	if err != nil {
		return 0, fmt.Errorf("failed to archive quarter %s: %w", label, err)
	}
	if n > 0 {
		m.log.Info().Str("quarter", label).Int64("archived", n).Msg("Archived due investments")
	}
	return n, nil
}

// Rollover archives one investment and creates its successor. The successor
// starts the next quarter with the predecessor's principal plus its total
// accrued return, fresh accrual fields, and an empty add-on and one-off set.
// Document attachments carry forward; financial contributions do not.
//
// Archive-then-create is a logically atomic pair. If creation fails after
// the archive took effect, the predecessor stays archived with no successor
// and a RolloverError with Stage "create" is returned; such records are
// surfaced by ReconcileOrphans rather than blindly retried, since a blind
// retry could mint a duplicate successor.
func (m *Manager) Rollover(inv *domain.Investment, now time.Time) error {
	// An already-linked predecessor means a previous rollover completed;
	// re-running must not create a second successor.
	has, err := m.investments.HasSuccessor(inv.ID)
	if err != nil {
		return &domain.RolloverError{
			InvestmentID:  inv.ID,
			TransactionID: inv.TransactionID,
			Stage:         domain.RolloverStageArchive,
			Err:           err,
		}
	}
	if has {
		if !inv.Archived {
			if err := m.investments.Archive(inv.ID); err != nil {
				return &domain.RolloverError{
					InvestmentID:  inv.ID,
					TransactionID: inv.TransactionID,
					Stage:         domain.RolloverStageArchive,
					Err:           err,
				}
			}
		}
		return nil
	}

	if !inv.Archived {
		if err := m.investments.Archive(inv.ID); err != nil {
			return &domain.RolloverError{
				InvestmentID:  inv.ID,
				TransactionID: inv.TransactionID,
				Stage:         domain.RolloverStageArchive,
				Err:           err,
			}
		}
	}

	successor := m.buildSuccessor(inv, now)
	if err := m.investments.Create(&successor); err != nil {
		m.log.Error().
			Err(err).
			Int64("investment_id", inv.ID).
			Str("transaction_id", inv.TransactionID).
			Msg("Successor creation failed after archive; manual reconciliation required")
		return &domain.RolloverError{
			InvestmentID:  inv.ID,
			TransactionID: inv.TransactionID,
			Stage:         domain.RolloverStageCreate,
			Err:           err,
		}
	}

	m.log.Info().
		Int64("predecessor_id", inv.ID).
		Int64("successor_id", successor.ID).
		Str("quarter", successor.Quarter).
		Str("principal", successor.Principal.String()).
		Msg("Investment rolled over")

	return nil
}

// buildSuccessor derives the next-quarter record from its predecessor.
func (m *Manager) buildSuccessor(inv *domain.Investment, now time.Time) domain.Investment {
	predecessorID := inv.ID
	// The next quarter starts the day after the predecessor's quarter end.
	// Deriving the end date from that day (rather than adding three months)
	// avoids month-length normalization drift, e.g. Mar 31 + 3 months.
	nextQuarterStart := quarter.Day(inv.QuarterEndDate).AddDate(0, 0, 1)

	return domain.Investment{
		TransactionID:  uuid.NewString(),
		UserID:         inv.UserID,
		Name:           inv.Name,
		Principal:      inv.Principal.Add(inv.TotalAccruedReturn),
		GuaranteedRate: inv.GuaranteedRate,
		StartDate:      quarter.Day(now),
		Quarter:        quarter.ShortLabel(nextQuarterStart),
		QuarterEndDate: quarter.EndOf(nextQuarterStart),

		PrincipalAccruedReturn: decimal.Zero,
		AddOnAccruedReturn:     decimal.Zero,
		OneOffAccruedReturn:    decimal.Zero,
		TotalAccruedReturn:     decimal.Zero,

		ManagementFeeRate: inv.ManagementFeeRate,
		ManagementFee:     decimal.Zero,
		PerformanceYield:  decimal.Zero,
		OperationalCost:   decimal.Zero,

		Active:        true,
		PredecessorID: &predecessorID,

		Mandate:     inv.Mandate,
		Certificate: inv.Certificate,
		Checklist:   inv.Checklist,
		PartnerForm: inv.PartnerForm,
		Others:      inv.Others,
	}
}

// RolloverDue rolls over every active investment whose quarter end has been
// reached as of now. Per-investment failures are logged and skipped; the
// first error encountered is returned after the full pass so the caller can
// surface it without starving the rest of the batch.
func (m *Manager) RolloverDue(now time.Time) (int, error) {
	due, err := m.investments.FindActiveDue(now)
	if err != nil {
		return 0, fmt.Errorf("failed to load due investments: %w", err)
	}

	var rolled int
	var firstErr error
	for i := range due {
		if err := m.Rollover(&due[i], now); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		rolled++
	}

	return rolled, firstErr
}

// ReconcileOrphans reports archived investments with no successor: rollovers
// that archived but failed to create. These need operator review, not an
// automatic retry.
func (m *Manager) ReconcileOrphans() ([]domain.Investment, error) {
	orphans, err := m.investments.FindArchivedWithoutSuccessor()
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned investments: %w", err)
	}

	for i := range orphans {
		m.log.Warn().
			Int64("investment_id", orphans[i].ID).
			Str("transaction_id", orphans[i].TransactionID).
			Str("quarter", orphans[i].Quarter).
			Msg("Archived investment has no successor; manual reconciliation required")
	}

	return orphans, nil
}
