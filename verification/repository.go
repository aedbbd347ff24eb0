// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcodagnone/geoverify/spatial"
)

// CellResolution is the H3 resolution stored with every located record.
const CellResolution = 9

// Record is a persisted verification.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	Street       string         `json:"street"`
	HouseNumber  string         `json:"housenumber"`
	City         string         `json:"city"`
	Postcode     string         `json:"postcode"`
	Country      string         `json:"country"`
	Formatted    string         `json:"formatted"`
	Status       Status         `json:"status"`
	Level        Level          `json:"level,omitempty"`
	Label        string         `json:"label,omitempty"`
	Verification string         `json:"verification,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	StreetLevel  *float64       `json:"street_level,omitempty"`
	Point        *spatial.Point `json:"point,omitempty"`
	Cell         int64          `json:"h3_cell,omitempty"`
	Provider     string         `json:"provider"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewRecord captures an outcome for persistence.
func NewRecord(out *Outcome) (*Record, error) {
	addr := out.Confirmation.Address
	rec := &Record{
		ID:          uuid.New(),
		Street:      addr.Street,
		HouseNumber: addr.HouseNumber,
		City:        addr.City,
		Postcode:    addr.Postcode,
		Country:     addr.Country,
		Formatted:   out.Confirmation.Formatted,
		Status:      out.Status,
		Provider:    out.Provider,
		CreatedAt:   time.Now(),
	}

	if out.Badge != nil {
		rec.Level = out.Badge.Level
		rec.Label = out.Badge.Label
	}

	if out.Verification != nil {
		rec.Verification = out.Verification.Label
	}

	if out.Top != nil {
		rec.Confidence = out.Top.Properties.Rank.Confidence
		rec.StreetLevel = out.Top.Properties.Rank.ConfidenceStreetLevel

		if p := out.Top.Point(); p != nil {
			cell, err := p.Cell(CellResolution)
			if err != nil {
				return nil, err
			}

			rec.Point = p
			rec.Cell = cell
		}
	}

	return rec, nil
}

// Repository persists verification history.
type Repository interface {
	// CreateSchema creates the verifications table
	CreateSchema() error

	// Save inserts a record
	Save(rec *Record) error

	// List returns records, newest first, optionally filtered by status
	List(status *Status, limit, offset int) ([]*Record, error)

	// ListByCell returns records located in the given H3 cell
	ListByCell(cell int64) ([]*Record, error)

	// Count returns the number of records, optionally filtered by status
	Count(status *Status) (int, error)

	// GetAllSorted returns every record, oldest first
	GetAllSorted() ([]*Record, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by db.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS verifications (
			id UUID PRIMARY KEY,
			street VARCHAR NOT NULL,
			housenumber VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			postcode VARCHAR NOT NULL,
			country VARCHAR NOT NULL,
			formatted VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			level VARCHAR,
			label VARCHAR,
			verification VARCHAR,
			confidence DOUBLE,
			street_level DOUBLE,
			point VARCHAR,
			h3_cell BIGINT,
			provider VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *sqlRepository) Save(rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var point sql.NullString

	var cell sql.NullInt64

	if rec.Point != nil {
		v, err := rec.Point.Value()
		if err != nil {
			return fmt.Errorf("encoding point: %w", err)
		}

		wkt, ok := v.(string)
		if !ok {
			return fmt.Errorf("encoding point: unexpected %T", v)
		}

		point = sql.NullString{String: wkt, Valid: true}
		cell = sql.NullInt64{Int64: rec.Cell, Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO verifications(
			id, street, housenumber, city, postcode, country, formatted,
			status, level, label, verification, confidence, street_level,
			point, h3_cell, provider, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID.String(),
		rec.Street,
		rec.HouseNumber,
		rec.City,
		rec.Postcode,
		rec.Country,
		rec.Formatted,
		string(rec.Status),
		nullString(string(rec.Level)),
		nullString(rec.Label),
		nullString(rec.Verification),
		nullFloat(rec.Confidence),
		nullFloat(rec.StreetLevel),
		point,
		cell,
		rec.Provider,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving verification %s: %w", rec.ID, err)
	}

	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}

const selectColumns = `
	SELECT CAST(id AS VARCHAR), street, housenumber, city, postcode, country, formatted,
	       status, level, label, verification, confidence, street_level,
	       point, h3_cell, provider, created_at
	FROM verifications
`

func (r *sqlRepository) list(query string, args []any) ([]*Record, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var (
			rec                        Record
			id, status                 string
			level, label, verification sql.NullString
			confidence, streetLevel    sql.NullFloat64
			point                      sql.NullString
			cell                       sql.NullInt64
		)

		err := rows.Scan(
			&id,
			&rec.Street,
			&rec.HouseNumber,
			&rec.City,
			&rec.Postcode,
			&rec.Country,
			&rec.Formatted,
			&status,
			&level,
			&label,
			&verification,
			&confidence,
			&streetLevel,
			&point,
			&cell,
			&rec.Provider,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", id, err)
		}

		rec.Status = Status(status)
		rec.Level = Level(level.String)
		rec.Label = label.String
		rec.Verification = verification.String

		if confidence.Valid {
			rec.Confidence = &confidence.Float64
		}

		if streetLevel.Valid {
			rec.StreetLevel = &streetLevel.Float64
		}

		if point.Valid {
			rec.Point = &spatial.Point{}
			if err := rec.Point.Scan(point.String); err != nil {
				return nil, err
			}
		}

		if cell.Valid {
			rec.Cell = cell.Int64
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *sqlRepository) List(status *Status, limit, offset int) ([]*Record, error) {
	query := selectColumns
	args := []any{}

	if status != nil {
		query += " WHERE status = ?"

		args = append(args, string(*status))
	}

	query += " ORDER BY created_at DESC, id"

	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	if offset > 0 {
		query += " OFFSET ?"

		args = append(args, offset)
	}

	return r.list(query, args)
}

func (r *sqlRepository) ListByCell(cell int64) ([]*Record, error) {
	return r.list(selectColumns+" WHERE h3_cell = ? ORDER BY created_at DESC, id", []any{cell})
}

func (r *sqlRepository) Count(status *Status) (int, error) {
	query := "SELECT COUNT(*) FROM verifications"
	args := []any{}

	if status != nil {
		query += " WHERE status = ?"

		args = append(args, string(*status))
	}

	var n int

	err := r.db.QueryRow(query, args...).Scan(&n)

	return n, err
}

func (r *sqlRepository) GetAllSorted() ([]*Record, error) {
	return r.list(selectColumns+" ORDER BY created_at, id", nil)
}
