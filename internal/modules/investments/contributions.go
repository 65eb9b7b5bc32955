package investments

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// CreateAddOn inserts a new add-on contribution and sets its ID.
func (r *Repository) CreateAddOn(a *domain.AddOn) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("failed to create add-on: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.DateOfEntry.IsZero() {
		a.DateOfEntry = now
	}

	res, err := r.db.Exec(`
		INSERT INTO add_ons
		(investment_id, amount, rate, status, start_date, date_of_entry, accrued_interest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.InvestmentID,
		a.Amount.String(),
		a.Rate,
		string(a.Status),
		nullTime(a.StartDate),
		a.DateOfEntry.UTC().Unix(),
		a.AccruedInterest.String(),
		a.CreatedAt.Unix(),
		a.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create add-on: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new add-on id: %w", err)
	}
	a.ID = id

	r.log.Info().
		Int64("id", a.ID).
		Int64("investment_id", a.InvestmentID).
		Str("amount", a.Amount.String()).
		Msg("Add-on created")

	return nil
}

// SaveAddOn updates an existing add-on's mutable fields.
func (r *Repository) SaveAddOn(a *domain.AddOn) error {
	return r.saveAddOn(r.db, a)
}

func (r *Repository) saveAddOn(e execer, a *domain.AddOn) error {
	if a.ID == 0 {
		return fmt.Errorf("cannot save add-on without id")
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("failed to save add-on: %w", err)
	}

	a.UpdatedAt = time.Now().UTC()

	_, err := e.Exec(`
		UPDATE add_ons SET
			amount = ?, rate = ?, status = ?, start_date = ?,
			accrued_interest = ?, updated_at = ?
		WHERE id = ?`,
		a.Amount.String(),
		a.Rate,
		string(a.Status),
		nullTime(a.StartDate),
		a.AccruedInterest.String(),
		a.UpdatedAt.Unix(),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save add-on %d: %w", a.ID, err)
	}

	return nil
}

// AddOnsFor retrieves all add-ons of an investment, oldest entry first.
func (r *Repository) AddOnsFor(investmentID int64) ([]domain.AddOn, error) {
	query := "SELECT " + addOnColumns + " FROM add_ons WHERE investment_id = ? ORDER BY date_of_entry ASC, id ASC"

	rows, err := r.db.Query(query, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query add-ons for investment %d: %w", investmentID, err)
	}
	defer rows.Close()

	var addOns []domain.AddOn
	for rows.Next() {
		a, err := scanAddOn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan add-on: %w", err)
		}
		addOns = append(addOns, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating add-ons: %w", err)
	}

	return addOns, nil
}

// CreateOneOff inserts a new one-off deposit and sets its ID.
func (r *Repository) CreateOneOff(o *domain.OneOff) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("failed to create one-off: %w", err)
	}

	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.DateOfEntry.IsZero() {
		o.DateOfEntry = now
	}

	res, err := r.db.Exec(`
		INSERT INTO one_offs
		(investment_id, amount, rate, yield, start_date, end_date, date_of_entry, accrued_interest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.InvestmentID,
		o.Amount.String(),
		o.Rate,
		o.Yield.String(),
		o.StartDate.UTC().Unix(),
		o.EndDate.UTC().Unix(),
		o.DateOfEntry.UTC().Unix(),
		o.AccruedInterest.String(),
		o.CreatedAt.Unix(),
		o.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create one-off: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new one-off id: %w", err)
	}
	o.ID = id

	r.log.Info().
		Int64("id", o.ID).
		Int64("investment_id", o.InvestmentID).
		Str("amount", o.Amount.String()).
		Msg("One-off created")

	return nil
}

// SaveOneOff updates an existing one-off's mutable fields.
func (r *Repository) SaveOneOff(o *domain.OneOff) error {
	return r.saveOneOff(r.db, o)
}

func (r *Repository) saveOneOff(e execer, o *domain.OneOff) error {
	if o.ID == 0 {
		return fmt.Errorf("cannot save one-off without id")
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("failed to save one-off: %w", err)
	}

	o.UpdatedAt = time.Now().UTC()

	_, err := e.Exec(`
		UPDATE one_offs SET
			amount = ?, rate = ?, yield = ?, start_date = ?, end_date = ?,
			accrued_interest = ?, updated_at = ?
		WHERE id = ?`,
		o.Amount.String(),
		o.Rate,
		o.Yield.String(),
		o.StartDate.UTC().Unix(),
		o.EndDate.UTC().Unix(),
		o.AccruedInterest.String(),
		o.UpdatedAt.Unix(),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save one-off %d: %w", o.ID, err)
	}

	return nil
}

// OneOffsFor retrieves all one-offs of an investment, oldest window first.
func (r *Repository) OneOffsFor(investmentID int64) ([]domain.OneOff, error) {
	query := "SELECT " + oneOffColumns + " FROM one_offs WHERE investment_id = ? ORDER BY start_date ASC, id ASC"

	rows, err := r.db.Query(query, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query one-offs for investment %d: %w", investmentID, err)
	}
	defer rows.Close()

	var oneOffs []domain.OneOff
	for rows.Next() {
		o, err := scanOneOff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan one-off: %w", err)
		}
		oneOffs = append(oneOffs, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating one-offs: %w", err)
	}

	return oneOffs, nil
}

func scanAddOn(row scanner) (domain.AddOn, error) {
	var a domain.AddOn
	var amount, accrued, status string
	var startDate sql.NullInt64
	var dateOfEntry, createdAt, updatedAt int64

	err := row.Scan(
		&a.ID,
		&a.InvestmentID,
		&amount,
		&a.Rate,
		&status,
		&startDate,
		&dateOfEntry,
		&accrued,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return a, err
	}

	if a.Amount, err = parseDecimal(amount); err != nil {
		return a, err
	}
	if a.AccruedInterest, err = parseDecimal(accrued); err != nil {
		return a, err
	}

	a.Status = domain.AddOnStatus(status)
	if startDate.Valid {
		a.StartDate = time.Unix(startDate.Int64, 0).UTC()
	}
	a.DateOfEntry = time.Unix(dateOfEntry, 0).UTC()
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return a, nil
}

func scanOneOff(row scanner) (domain.OneOff, error) {
	var o domain.OneOff
	var amount, yield, accrued string
	var startDate, endDate, dateOfEntry, createdAt, updatedAt int64

	err := row.Scan(
		&o.ID,
		&o.InvestmentID,
		&amount,
		&o.Rate,
		&yield,
		&startDate,
		&endDate,
		&dateOfEntry,
		&accrued,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return o, err
	}

	if o.Amount, err = parseDecimal(amount); err != nil {
		return o, err
	}
	if o.Yield, err = parseDecimal(yield); err != nil {
		return o, err
	}
	if o.AccruedInterest, err = parseDecimal(accrued); err != nil {
		return o, err
	}

	o.StartDate = time.Unix(startDate, 0).UTC()
	o.EndDate = time.Unix(endDate, 0).UTC()
	o.DateOfEntry = time.Unix(dateOfEntry, 0).UTC()
	o.CreatedAt = time.Unix(createdAt, 0).UTC()
	o.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return o, nil
}
