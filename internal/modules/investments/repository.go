// Package investments provides persistence for investments and their owned
// add-on and one-off contributions.
package investments

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rgeorgiou/quarterbook/internal/database"
	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// investmentColumns is the column list for the investments table.
// Order must match scanInvestment.
const investmentColumns = `id, transaction_id, user_id, name, principal, guaranteed_rate,
	start_date, quarter, quarter_end_date,
	principal_accrued_return, add_on_accrued_return, one_off_accrued_return, total_accrued_return,
	management_fee_rate, management_fee, performance_yield, operational_cost,
	archived, active, predecessor_id,
	mandate, certificate, checklist, partner_form, others,
	created_at, updated_at`

// addOnColumns is the column list for the add_ons table. Order must match scanAddOn.
const addOnColumns = `id, investment_id, amount, rate, status, start_date, date_of_entry,
	accrued_interest, created_at, updated_at`

// oneOffColumns is the column list for the one_offs table. Order must match scanOneOff.
const oneOffColumns = `id, investment_id, amount, rate, yield, start_date, end_date,
	date_of_entry, accrued_interest, created_at, updated_at`

// Repository handles investment database operations. All writes validate the
// entity first so that schema constraints are never the first line of defense.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new investment repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investments").Logger(),
	}
}

// Create inserts a new investment and sets its ID.
func (r *Repository) Create(inv *domain.Investment) error {
	return r.create(r.db, inv)
}

// CreateTx inserts a new investment within an existing transaction.
func (r *Repository) CreateTx(tx *sql.Tx, inv *domain.Investment) error {
	return r.create(tx, inv)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) create(e execer, inv *domain.Investment) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}

	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	query := `
		INSERT INTO investments
		(transaction_id, user_id, name, principal, guaranteed_rate,
		 start_date, quarter, quarter_end_date,
		 principal_accrued_return, add_on_accrued_return, one_off_accrued_return, total_accrued_return,
		 management_fee_rate, management_fee, performance_yield, operational_cost,
		 archived, active, predecessor_id,
		 mandate, certificate, checklist, partner_form, others,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := e.Exec(query,
		inv.TransactionID,
		inv.UserID,
		nullString(inv.Name),
		inv.Principal.String(),
		inv.GuaranteedRate,
		inv.StartDate.UTC().Unix(),
		inv.Quarter,
		inv.QuarterEndDate.UTC().Unix(),
		inv.PrincipalAccruedReturn.String(),
		inv.AddOnAccruedReturn.String(),
		inv.OneOffAccruedReturn.String(),
		inv.TotalAccruedReturn.String(),
		inv.ManagementFeeRate,
		inv.ManagementFee.String(),
		inv.PerformanceYield.String(),
		inv.OperationalCost.String(),
		boolToInt(inv.Archived),
		boolToInt(inv.Active),
		nullInt64Ptr(inv.PredecessorID),
		jsonList(inv.Mandate),
		jsonList(inv.Certificate),
		jsonList(inv.Checklist),
		jsonList(inv.PartnerForm),
		jsonList(inv.Others),
		inv.CreatedAt.Unix(),
		inv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new investment id: %w", err)
	}
	inv.ID = id

	r.log.Info().
		Int64("id", inv.ID).
		Str("transaction_id", inv.TransactionID).
		Str("quarter", inv.Quarter).
		Msg("Investment created")

	return nil
}

// Save updates an existing investment's mutable fields.
func (r *Repository) Save(inv *domain.Investment) error {
	return r.save(r.db, inv)
}

func (r *Repository) save(e execer, inv *domain.Investment) error {
	if inv.ID == 0 {
		return fmt.Errorf("cannot save investment without id")
	}
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}

	inv.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE investments SET
			name = ?, principal = ?, guaranteed_rate = ?,
			start_date = ?, quarter = ?, quarter_end_date = ?,
			principal_accrued_return = ?, add_on_accrued_return = ?,
			one_off_accrued_return = ?, total_accrued_return = ?,
			management_fee_rate = ?, management_fee = ?,
			performance_yield = ?, operational_cost = ?,
			archived = ?, active = ?,
			mandate = ?, certificate = ?, checklist = ?, partner_form = ?, others = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := e.Exec(query,
		nullString(inv.Name),
		inv.Principal.String(),
		inv.GuaranteedRate,
		inv.StartDate.UTC().Unix(),
		inv.Quarter,
		inv.QuarterEndDate.UTC().Unix(),
		inv.PrincipalAccruedReturn.String(),
		inv.AddOnAccruedReturn.String(),
		inv.OneOffAccruedReturn.String(),
		inv.TotalAccruedReturn.String(),
		inv.ManagementFeeRate,
		inv.ManagementFee.String(),
		inv.PerformanceYield.String(),
		inv.OperationalCost.String(),
		boolToInt(inv.Archived),
		boolToInt(inv.Active),
		jsonList(inv.Mandate),
		jsonList(inv.Certificate),
		jsonList(inv.Checklist),
		jsonList(inv.PartnerForm),
		jsonList(inv.Others),
		inv.UpdatedAt.Unix(),
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save investment %d: %w", inv.ID, err)
	}

	return nil
}

// FindByID retrieves an investment by primary key, or nil when not found.
func (r *Repository) FindByID(id int64) (*domain.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE id = ?"

	inv, err := scanInvestment(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}

	return &inv, nil
}

// FindByTransactionID retrieves an investment by its unique transaction
// identifier, or nil when not found.
func (r *Repository) FindByTransactionID(transactionID string) (*domain.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE transaction_id = ?"

	inv, err := scanInvestment(r.db.QueryRow(query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %s: %w", transactionID, err)
	}

	return &inv, nil
}

// FindActive retrieves all active investments, oldest start date first.
func (r *Repository) FindActive() ([]domain.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE active = 1 ORDER BY start_date ASC"
	return r.queryInvestments(query)
}

// FindByQuarter retrieves investments for a quarter label (Q1..Q4) filtered
// by archived state, oldest first.
func (r *Repository) FindByQuarter(label string, archived bool) ([]domain.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE quarter = ? AND archived = ? ORDER BY id ASC"
	return r.queryInvestments(query, label, boolToInt(archived))
}

// FindActiveDue retrieves active investments whose quarter end date has been
// reached as of the given instant.
func (r *Repository) FindActiveDue(asOf time.Time) ([]domain.Investment, error) {
	query := "SELECT " + investmentColumns + " FROM investments WHERE active = 1 AND quarter_end_date <= ? ORDER BY id ASC"
	return r.queryInvestments(query, asOf.UTC().Unix())
}

// FindArchivedWithoutSuccessor retrieves archived investments that no
// successor record points back to. These are rollovers that archived but
// never produced a successor, awaiting reconciliation.
func (r *Repository) FindArchivedWithoutSuccessor() ([]domain.Investment, error) {
	query := "SELECT " + investmentColumns + ` FROM investments i
		WHERE i.archived = 1
		  AND NOT EXISTS (SELECT 1 FROM investments s WHERE s.predecessor_id = i.id)
		ORDER BY i.id ASC`
	return r.queryInvestments(query)
}

// HasSuccessor reports whether any investment points back at the given id.
func (r *Repository) HasSuccessor(id int64) (bool, error) {
	var exists int
	err := r.db.QueryRow(
		"SELECT 1 FROM investments WHERE predecessor_id = ? LIMIT 1", id,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check successor of investment %d: %w", id, err)
	}
	return true, nil
}

// BulkSetArchived archives every non-archived investment in the given
// quarter, clearing the active flag. Returns the number of rows changed.
// Idempotent: re-running with no matching rows is a no-op, not an error.
func (r *Repository) BulkSetArchived(label string) (int64, error) {
	res, err := r.db.Exec(
		"UPDATE investments SET archived = 1, active = 0, updated_at = ? WHERE quarter = ? AND archived = 0",
		time.Now().UTC().Unix(), label,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to archive investments for quarter %s: %w", label, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read archive result for quarter %s: %w", label, err)
	}

	return rows, nil
}

// Archive archives a single investment, clearing the active flag.
// Idempotent for already-archived rows.
func (r *Repository) Archive(id int64) error {
	_, err := r.db.Exec(
		"UPDATE investments SET archived = 1, active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to archive investment %d: %w", id, err)
	}
	return nil
}

// CountsByState returns investment counts for the status surface.
type CountsByState struct {
	Active                   int `json:"active"`
	Archived                 int `json:"archived"`
	ArchivedWithoutSuccessor int `json:"archived_without_successor"`
}

// Counts computes investment counts by state.
func (r *Repository) Counts() (CountsByState, error) {
	var c CountsByState
	err := r.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN active = 1 THEN 1 END),
			COUNT(CASE WHEN archived = 1 THEN 1 END),
			COUNT(CASE WHEN archived = 1
				AND NOT EXISTS (SELECT 1 FROM investments s WHERE s.predecessor_id = investments.id)
				THEN 1 END)
		FROM investments
	`).Scan(&c.Active, &c.Archived, &c.ArchivedWithoutSuccessor)
	if err != nil {
		return c, fmt.Errorf("failed to count investments: %w", err)
	}
	return c, nil
}

// SaveAccrual persists the outcome of one accrual pass for an investment and
// its mutated contributions as a single transaction, so a partial write can
// never leave the running totals out of step with the add-on rows.
func (r *Repository) SaveAccrual(inv *domain.Investment, addOns []domain.AddOn, oneOffs []domain.OneOff) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if err := r.save(tx, inv); err != nil {
			return err
		}
		for i := range addOns {
			if err := r.saveAddOn(tx, &addOns[i]); err != nil {
				return err
			}
		}
		for i := range oneOffs {
			if err := r.saveOneOff(tx, &oneOffs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) queryInvestments(query string, args ...interface{}) ([]domain.Investment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var invs []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}

	return invs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestment(row scanner) (domain.Investment, error) {
	var inv domain.Investment
	var name sql.NullString
	var principal, principalAccrued, addOnAccrued, oneOffAccrued, totalAccrued string
	var fee, performanceYield, operationalCost string
	var startDate, quarterEnd, createdAt, updatedAt int64
	var archived, active int
	var predecessorID sql.NullInt64
	var mandate, certificate, checklist, partnerForm, others sql.NullString

	err := row.Scan(
		&inv.ID,
		&inv.TransactionID,
		&inv.UserID,
		&name,
		&principal,
		&inv.GuaranteedRate,
		&startDate,
		&inv.Quarter,
		&quarterEnd,
		&principalAccrued,
		&addOnAccrued,
		&oneOffAccrued,
		&totalAccrued,
		&inv.ManagementFeeRate,
		&fee,
		&performanceYield,
		&operationalCost,
		&archived,
		&active,
		&predecessorID,
		&mandate,
		&certificate,
		&checklist,
		&partnerForm,
		&others,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return inv, err
	}

	if name.Valid {
		inv.Name = name.String
	}
	if inv.Principal, err = parseDecimal(principal); err != nil {
		return inv, err
	}
	if inv.PrincipalAccruedReturn, err = parseDecimal(principalAccrued); err != nil {
		return inv, err
	}
	if inv.AddOnAccruedReturn, err = parseDecimal(addOnAccrued); err != nil {
		return inv, err
	}
	if inv.OneOffAccruedReturn, err = parseDecimal(oneOffAccrued); err != nil {
		return inv, err
	}
	if inv.TotalAccruedReturn, err = parseDecimal(totalAccrued); err != nil {
		return inv, err
	}
	if inv.ManagementFee, err = parseDecimal(fee); err != nil {
		return inv, err
	}
	if inv.PerformanceYield, err = parseDecimal(performanceYield); err != nil {
		return inv, err
	}
	if inv.OperationalCost, err = parseDecimal(operationalCost); err != nil {
		return inv, err
	}

	inv.StartDate = time.Unix(startDate, 0).UTC()
	inv.QuarterEndDate = time.Unix(quarterEnd, 0).UTC()
	inv.CreatedAt = time.Unix(createdAt, 0).UTC()
	inv.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	inv.Archived = archived != 0
	inv.Active = active != 0
	if predecessorID.Valid {
		inv.PredecessorID = &predecessorID.Int64
	}

	inv.Mandate = parseJSONList(mandate)
	inv.Certificate = parseJSONList(certificate)
	inv.Checklist = parseJSONList(checklist)
	inv.PartnerForm = parseJSONList(partnerForm)
	inv.Others = parseJSONList(others)

	return inv, nil
}

// Helper functions

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value %q: %w", s, err)
	}
	return d, nil
}

func jsonList(items []string) sql.NullString {
	if len(items) == 0 {
		return sql.NullString{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func parseJSONList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s.String), &items); err != nil {
		return nil
	}
	return items
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
