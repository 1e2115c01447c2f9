package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS edit_journal (
	id            UUID PRIMARY KEY,
	action        TEXT NOT NULL,
	severity      TEXT NOT NULL,
	table_key     TEXT,
	rows_affected INTEGER NOT NULL DEFAULT 0,
	fatal_count   INTEGER NOT NULL DEFAULT 0,
	error_count   INTEGER NOT NULL DEFAULT 0,
	warning_count INTEGER NOT NULL DEFAULT 0,
	info_count    INTEGER NOT NULL DEFAULT 0,
	message       TEXT,
	success       BOOLEAN NOT NULL,
	source        TEXT,
	ip_address    INET,
	user_agent    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS edit_journal_created_at_idx ON edit_journal (created_at DESC);
CREATE INDEX IF NOT EXISTS edit_journal_table_key_idx ON edit_journal (table_key);
`

const journalColumns = `id::text, action, severity, table_key, rows_affected,
	fatal_count, error_count, warning_count, info_count, message, success,
	source, ip_address, user_agent, created_at`

// PostgresJournal stores journal entries in PostgreSQL.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal connects to databaseURL and creates the journal table
// if it does not exist.
func NewPostgresJournal(ctx context.Context, databaseURL string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("journal pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal ping: %w", err)
	}
	j := &PostgresJournal{pool: pool}
	if err := j.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

// OpenJournal returns a PostgresJournal when databaseURL is set and a
// MemoryJournal of memorySize entries otherwise.
func OpenJournal(ctx context.Context, databaseURL string, memorySize int) (Journal, error) {
	if databaseURL == "" {
		return NewMemoryJournal(memorySize), nil
	}
	return NewPostgresJournal(ctx, databaseURL)
}

// EnsureSchema creates the journal table and its indexes.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return nil
}

// Record implements Journal.
func (j *PostgresJournal) Record(ctx context.Context, e JournalEntry) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO edit_journal (id, action, severity, table_key, rows_affected,
			fatal_count, error_count, warning_count, info_count, message, success,
			source, ip_address, user_agent, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, string(e.Action), string(e.Severity), pgText(e.TableKey), e.Rows,
		e.Fatal, e.Errors, e.Warnings, e.Info, pgText(e.Message), e.Success,
		pgText(e.Source), parseIP(e.IPAddress), pgText(e.UserAgent), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List implements Journal.
func (j *PostgresJournal) List(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}

	wb := NewWhereBuilder()
	wb.Add("table_key", filter.TableKey)
	wb.Add("action", string(filter.Action))
	wb.Add("severity", string(filter.Severity))
	wb.AddBool("success", filter.Success)
	wb.AddSearch(filter.Search, "table_key", "message")
	if !filter.Since.IsZero() {
		wb.AddTimestampRange("created_at", filter.Since, time.Now().Add(24*time.Hour))
	}
	whereClause, args := wb.Build()

	query := `SELECT ` + journalColumns + ` FROM edit_journal` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := make([]JournalEntry, 0)
	for rows.Next() {
		entry, err := scanJournalRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one entry by ID.
func (j *PostgresJournal) Get(ctx context.Context, id string) (JournalEntry, error) {
	row := j.pool.QueryRow(ctx, `SELECT `+journalColumns+` FROM edit_journal WHERE id = $1::uuid`, id)
	entry, err := scanJournalRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, fmt.Errorf("journal entry not found: %s", id)
	}
	return entry, err
}

// Prune implements Journal.
func (j *PostgresJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := j.pool.Exec(ctx, `DELETE FROM edit_journal WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements Journal.
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

func scanJournalRow(row pgx.Row) (JournalEntry, error) {
	var (
		e                                JournalEntry
		action, severity                 string
		tableKey, message, source, agent pgtype.Text
		ip                               *netip.Addr
	)
	err := row.Scan(&e.ID, &action, &severity, &tableKey, &e.Rows,
		&e.Fatal, &e.Errors, &e.Warnings, &e.Info, &message, &e.Success,
		&source, &ip, &agent, &e.CreatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Action = JournalAction(action)
	e.Severity = JournalSeverity(severity)
	e.TableKey = tableKey.String
	e.Message = message.String
	e.Source = source.String
	e.UserAgent = agent.String
	if ip != nil {
		e.IPAddress = ip.String()
	}
	return e, nil
}

// pgText converts a string to pgtype.Text, NULL when empty.
func pgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// parseIP strips any port and parses the address; nil when unparsable.
func parseIP(addr string) *netip.Addr {
	if addr == "" {
		return nil
	}
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &ip
}
