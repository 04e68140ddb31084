package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no report matches
	ErrNotFound = errors.New("report not found")
	// ErrPersistence wraps every database failure
	ErrPersistence = errors.New("persistence failure")
	// ErrAlreadyLinked is returned when a record already references a receipt
	ErrAlreadyLinked = errors.New("record already linked")
)

// Abrechnung is an expense report for one person and month
type Abrechnung struct {
	ID        int64
	Name      string
	Month     string
	Date      string
	Account   string
	BankCode  string
	CreatedAt string
	UpdatedAt string
	Records   []Record
}

// Total sums all records in EUR
func (r *Abrechnung) Total() float64 {
	var total float64
	for _, rec := range r.Records {
		total += rec.Total()
	}
	return total
}

// Item is a stored record with its row ids
type Item struct {
	ID       int64
	ReportID int64
	Record   Record
}

// Store persists reports in SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dbPath and applies pending migrations
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, persistErr("open sqlite database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, persistErr("ping database", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// SaveReport creates or replaces the report for (name, month). All existing
// records of the report are deleted and the given ones inserted.
func (s *Store) SaveReport(ctx context.Context, r *Abrechnung) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	id, err := upsertReport(ctx, tx, r.Name, r.Month, r.Date, &r.Account, &r.BankCode)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ausgaben WHERE abrechnung_id = ?`, id); err != nil {
		return 0, persistErr("delete records", err)
	}
	if err := insertRecords(ctx, tx, id, r.Records); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit report", err)
	}

	r.ID = id
	slog.Info("Saved report", "id", id, "name", r.Name, "month", r.Month, "records", len(r.Records))
	return id, nil
}

// AppendRecords adds records to the report for (name, month), creating it when
// missing. The report date is updated, existing records are kept.
func (s *Store) AppendRecords(ctx context.Context, name, month, date string, records []Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	id, err := upsertReport(ctx, tx, name, month, date, nil, nil)
	if err != nil {
		return 0, err
	}
	if err := insertRecords(ctx, tx, id, records); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("commit records", err)
	}

	slog.Info("Appended records", "id", id, "name", name, "month", month, "records", len(records))
	return id, nil
}

// upsertReport returns the id of the report for (name, month). Nil account
// fields leave the stored values untouched.
func upsertReport(ctx context.Context, tx *sql.Tx, name, month, date string, account, bankCode *string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM abrechnungen WHERE name = ? AND monat = ?`, name, month).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO abrechnungen (name, monat, datum, konto, blz) VALUES (?, ?, ?, ?, ?)`,
			name, month, date, deref(account), deref(bankCode))
		if err != nil {
			return 0, persistErr("insert report", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, persistErr("read report id", err)
		}
		return id, nil
	case err != nil:
		return 0, persistErr("find report", err)
	}

	if account != nil && bankCode != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE abrechnungen SET datum = ?, konto = ?, blz = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			date, *account, *bankCode, id)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE abrechnungen SET datum = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, date, id)
	}
	if err != nil {
		return 0, persistErr("update report", err)
	}
	return id, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, reportID int64, records []Record) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ausgaben (abrechnung_id, kategorie, daten) VALUES (?, ?, ?)`)
	if err != nil {
		return persistErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		data, err := Encode(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, reportID, string(rec.Category()), string(data)); err != nil {
			return persistErr("insert record", err)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const reportColumns = `id, name, monat, COALESCE(datum, ''), COALESCE(konto, ''), COALESCE(blz, ''), created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (*Abrechnung, error) {
	var r Abrechnung
	if err := row.Scan(&r.ID, &r.Name, &r.Month, &r.Date, &r.Account, &r.BankCode, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReport loads a report with its records
func (s *Store) GetReport(ctx context.Context, id int64) (*Abrechnung, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM abrechnungen WHERE id = ?`, id)
	return s.loadReport(ctx, row)
}

// FindReport loads the report for (name, month) with its records
func (s *Store) FindReport(ctx context.Context, name, month string) (*Abrechnung, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM abrechnungen WHERE name = ? AND monat = ?`, name, month)
	return s.loadReport(ctx, row)
}

func (s *Store) loadReport(ctx context.Context, row *sql.Row) (*Abrechnung, error) {
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get report", err)
	}

	items, err := s.items(ctx, `WHERE abrechnung_id = ?`, r.ID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		r.Records = append(r.Records, it.Record)
	}
	sortByCategory(r.Records)
	return r, nil
}

// ListReports returns all reports without their records, newest first
func (s *Store) ListReports(ctx context.Context) ([]Abrechnung, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM abrechnungen ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, persistErr("list reports", err)
	}
	defer rows.Close()

	var reports []Abrechnung
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, persistErr("scan report", err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list reports", err)
	}
	return reports, nil
}

// DeleteReport removes a report and its records
func (s *Store) DeleteReport(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM abrechnungen WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete report", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit delete", err)
	}
	return nil
}

// ListItems returns every stored record of every report
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	return s.items(ctx, "")
}

func (s *Store) items(ctx context.Context, where string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, abrechnung_id, kategorie, daten FROM ausgaben `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, persistErr("list records", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it       Item
			category string
			data     string
		)
		if err := rows.Scan(&it.ID, &it.ReportID, &category, &data); err != nil {
			return nil, persistErr("scan record", err)
		}
		rec, err := Decode(category, []byte(data))
		if err != nil {
			slog.Warn("Skipping unreadable record", "id", it.ID, "error", err)
			continue
		}
		it.Record = rec
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list records", err)
	}
	return items, nil
}

// SetItemHash links a stored record to a receipt. An existing link is never overwritten.
func (s *Store) SetItemHash(ctx context.Context, id int64, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE ausgaben SET daten = json_set(daten, '$.file_hash', ?)
		WHERE id = ? AND COALESCE(json_extract(daten, '$.file_hash'), '') = ''`, hash, id)
	if err != nil {
		return persistErr("update record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ausgaben WHERE id = ?)`, id).Scan(&exists); err != nil {
			return persistErr("check record", err)
		}
		if exists {
			return ErrAlreadyLinked
		}
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit record", err)
	}
	return nil
}

// sortByCategory orders records by report category, keeping insertion order within a category
func sortByCategory(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return slices.Index(Categories, a.Category()) - slices.Index(Categories, b.Category())
	})
}
