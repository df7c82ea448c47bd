package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"showroom-kpi/models"
)

// PostgresStore archives each month's normalized rows in PostgreSQL.
// Saving a month replaces whatever was stored for it before.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

// kpiColumns lists the per-record columns in schema order.
func kpiColumns() []string {
	cols := make([]string, models.FieldCount)
	for i, f := range models.Fields {
		cols[i] = f.Column
	}
	return cols
}

func createTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS live_kpi (\n")
	b.WriteString("\tid        SERIAL PRIMARY KEY,\n")
	b.WriteString("\tmonth     CHAR(7) NOT NULL,\n")
	b.WriteString("\tmode      VARCHAR(16) NOT NULL,\n")
	for _, f := range models.Fields {
		typ := "TEXT"
		if f.Column == "duration_minutes" {
			typ = "INTEGER NOT NULL DEFAULT 0"
		}
		fmt.Fprintf(&b, "\t%s %s,\n", f.Column, typ)
	}
	b.WriteString("\tcreated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),\n")
	b.WriteString("\tUNIQUE (month, account_id, room_id, started_at, duration_minutes)\n")
	b.WriteString(");\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_live_kpi_month ON live_kpi(month);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_live_kpi_room  ON live_kpi(room_id);\n")
	return b.String()
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(createTableSQL())
	return err
}

// Save replaces the stored rows for the table's month in one transaction.
func (ps *PostgresStore) Save(ctx context.Context, t *models.Table) error {
	if t.Empty() {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM live_kpi WHERE month = $1", t.Month.Key()); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", t.Month.Key(), err)
	}

	const batchSize = 50
	for i := 0; i < len(t.Rows); i += batchSize {
		end := i + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := insertBatch(ctx, tx, t, t.Rows[i:end]); err != nil {
			return fmt.Errorf("postgres: insert %s: %w", t.Month.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// insertQuery builds a multi-row INSERT for n records.
func insertQuery(n int) string {
	cols := append([]string{"month", "mode"}, kpiColumns()...)
	width := len(cols)

	values := make([]string, 0, n)
	for r := 0; r < n; r++ {
		ph := make([]string, width)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", r*width+c+1)
		}
		values = append(values, "("+strings.Join(ph, ",")+")")
	}

	return fmt.Sprintf("INSERT INTO live_kpi (%s) VALUES %s ON CONFLICT DO NOTHING",
		strings.Join(cols, ", "), strings.Join(values, ","))
}

func insertBatch(ctx context.Context, tx *sql.Tx, t *models.Table, batch []models.Row) error {
	args := make([]interface{}, 0, len(batch)*(models.FieldCount+2))
	for _, row := range batch {
		args = append(args, t.Month.Key(), string(t.Mode))
		for _, v := range row {
			args = append(args, sqlValue(v))
		}
	}
	_, err := tx.ExecContext(ctx, insertQuery(len(batch)), args...)
	return err
}

// sqlValue maps nulls to SQL NULL and everything else to its export text.
func sqlValue(v models.Value) interface{} {
	if v == nil || v.IsNull() {
		return nil
	}
	if i, ok := v.(models.Int); ok {
		return int64(i)
	}
	return v.String()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
