package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions_journal (
	code        TEXT PRIMARY KEY,
	method      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	seller      TEXT NOT NULL DEFAULT '',
	subtotal    NUMERIC(14,2) NOT NULL DEFAULT 0,
	tax         NUMERIC(14,2) NOT NULL DEFAULT 0,
	total       NUMERIC(14,2) NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// Entry is one sale as the journal knows it.
type Entry struct {
	Code       string
	Method     string
	Status     backend.Status
	Seller     string
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	RecordedAt time.Time
	UpdatedAt  time.Time
}

var ErrNotFound = errors.New("journal entry not found")

type Repo struct{ DB *sql.DB }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Record inserts e or moves an existing entry forward. The status only
// changes along backend.CanTransition; amounts and seller are filled in when
// the stored ones are empty. It reports whether a row changed.
func (r *Repo) Record(ctx context.Context, e Entry) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		cur      string
		curTotal decimal.Decimal
		curSell  string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, total, seller FROM transactions_journal WHERE code=$1 FOR UPDATE`, e.Code,
	).Scan(&cur, &curTotal, &curSell)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions_journal(code, method, status, seller, subtotal, tax, total, recorded_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
			e.Code, e.Method, string(e.Status), e.Seller, e.Subtotal, e.Tax, e.Total, e.RecordedAt,
		); err != nil {
			return false, fmt.Errorf("insert %s: %w", e.Code, err)
		}
	case err != nil:
		return false, fmt.Errorf("load %s: %w", e.Code, err)
	default:
		from := backend.Status(cur)
		moved := backend.CanTransition(from, e.Status)
		fill := curTotal.IsZero() && !e.Total.IsZero()
		if !moved && !fill {
			return false, nil
		}
		next := from
		if moved {
			next = e.Status
		}
		seller := curSell
		if seller == "" {
			seller = e.Seller
		}
		q := `UPDATE transactions_journal SET status=$2, seller=$3, updated_at=$4`
		args := []any{e.Code, string(next), seller, e.RecordedAt}
		if fill {
			q += `, subtotal=$5, tax=$6, total=$7`
			args = append(args, e.Subtotal, e.Tax, e.Total)
		}
		if _, err := tx.ExecContext(ctx, q+` WHERE code=$1`, args...); err != nil {
			return false, fmt.Errorf("update %s: %w", e.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) Get(ctx context.Context, code string) (Entry, error) {
	var e Entry
	var st string
	err := r.DB.QueryRowContext(ctx, `
		SELECT code, method, status, seller, subtotal, tax, total, recorded_at, updated_at
		FROM transactions_journal WHERE code=$1`, code,
	).Scan(&e.Code, &e.Method, &st, &e.Seller, &e.Subtotal, &e.Tax, &e.Total, &e.RecordedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.Status = backend.Status(st)
	return e, nil
}

// Since lists entries recorded at or after t, oldest first.
func (r *Repo) Since(ctx context.Context, t time.Time) ([]Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT code, method, status, seller, subtotal, tax, total, recorded_at, updated_at
		FROM transactions_journal WHERE recorded_at >= $1 ORDER BY recorded_at`, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var st string
		if err := rows.Scan(&e.Code, &e.Method, &st, &e.Seller, &e.Subtotal, &e.Tax, &e.Total, &e.RecordedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = backend.Status(st)
		out = append(out, e)
	}
	return out, rows.Err()
}
