// Package sessionlog keeps an append-only SQLite journal of peer sessions.
package sessionlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/google/uuid"

	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
	"lanshare/pkg/migrator"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

const callbackTimeout = 5 * time.Second

type Config struct {
	DBPath string
	// SessionID tags rows written by this run. Empty generates one.
	SessionID string
	// SkipMigrations leaves the schema alone, for databases managed with cmd/migrate.
	SkipMigrations bool
}

// Journal records peer sessions. It implements discovery.PeerListener.
type Journal struct {
	db        *sql.DB
	log       *slog.Logger
	sessionID string
	now       func() time.Time
}

// Open opens the SQLite file at cfg.DBPath and brings its schema up to date.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Journal, error) {
	const op = "sessionlog.Open"

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%s: %w: empty database path", op, ErrInvalidInput)
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// sqlite допускает одного писателя
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !cfg.SkipMigrations {
		m := migrator.NewMigrator(db, migrator.Config{MigrationsPath: MigrationsDir, FS: Migrations}, log)
		if err := m.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Journal{
		db:        db,
		log:       log.With(slog.String("session_id", cfg.SessionID)),
		sessionID: cfg.SessionID,
		now:       time.Now,
	}, nil
}

func (j *Journal) SessionID() string {
	return j.sessionID
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin opens a session row for address, closing any row this run left
// open for it.
func (j *Journal) Begin(ctx context.Context, address, nickName string) error {
	const op = "sessionlog.Begin"

	if address == "" {
		return fmt.Errorf("%s: %w: empty address", op, ErrInvalidInput)
	}
	now := j.now().UnixMilli()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE peer_sessions SET disconnected_at = ?, end_reason = ?
		 WHERE session_id = ? AND address = ? AND disconnected_at IS NULL`,
		now, EndSuperseded, j.sessionID, address)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO peer_sessions (session_id, address, nick_name, connected_at) VALUES (?, ?, ?, ?)`,
		j.sessionID, address, nickName, now)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	return nil
}

// Rename updates the nickname of the open session for address.
func (j *Journal) Rename(ctx context.Context, address, nickName string) error {
	const op = "sessionlog.Rename"

	_, err := j.db.ExecContext(ctx,
		`UPDATE peer_sessions SET nick_name = ?, nick_changes = nick_changes + 1
		 WHERE session_id = ? AND address = ? AND disconnected_at IS NULL`,
		nickName, j.sessionID, address)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	return nil
}

// End closes the open session for address.
func (j *Journal) End(ctx context.Context, address string, reason EndReason) error {
	const op = "sessionlog.End"

	_, err := j.db.ExecContext(ctx,
		`UPDATE peer_sessions SET disconnected_at = ?, end_reason = ?
		 WHERE session_id = ? AND address = ? AND disconnected_at IS NULL`,
		j.now().UnixMilli(), reason, j.sessionID, address)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	return nil
}

// EndAll closes every session this run left open and returns how many
// rows were closed.
func (j *Journal) EndAll(ctx context.Context, reason EndReason) (int64, error) {
	const op = "sessionlog.EndAll"

	res, err := j.db.ExecContext(ctx,
		`UPDATE peer_sessions SET disconnected_at = ?, end_reason = ?
		 WHERE session_id = ? AND disconnected_at IS NULL`,
		j.now().UnixMilli(), reason, j.sessionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	return n, nil
}

// buildWhereClause constructs a WHERE clause and corresponding arguments for the filter
func (f Filter) buildWhereClause() (string, []interface{}) {
	where := []string{}
	args := []interface{}{}

	if f.Address != "" {
		where = append(where, "address = ?")
		args = append(args, f.Address)
	}
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.OnlyOpen {
		where = append(where, "disconnected_at IS NULL")
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// Sessions lists sessions matching f, newest first.
func (j *Journal) Sessions(ctx context.Context, f Filter) ([]Session, error) {
	const op = "sessionlog.Sessions"

	where, args := f.buildWhereClause()
	query := `SELECT id, session_id, address, nick_name, connected_at, disconnected_at, nick_changes, end_reason
		FROM peer_sessions` + where + ` ORDER BY connected_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s            Session
			connected    int64
			disconnected sql.NullInt64
			reason       string
		)
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Address, &s.NickName, &connected, &disconnected, &s.NickChanges, &reason); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
		}
		s.ConnectedAt = time.UnixMilli(connected)
		if disconnected.Valid {
			s.DisconnectedAt = time.UnixMilli(disconnected.Int64)
		}
		s.EndReason = EndReason(reason)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrDBOperationFailed, err)
	}
	return sessions, nil
}

func (j *Journal) OnPeerConnected(ipAddress, nickName string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	if err := j.Begin(ctx, ipAddress, nickName); err != nil {
		j.log.Error("failed to journal connect", slog.String("peer", ipAddress), sl.Err(err))
	}
}

func (j *Journal) OnPeerNickNameChange(ipAddress, newNickName, _ string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	if err := j.Rename(ctx, ipAddress, newNickName); err != nil {
		j.log.Error("failed to journal nickname change", slog.String("peer", ipAddress), sl.Err(err))
	}
}

func (j *Journal) OnPeerDisconnected(ipAddress, _ string) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	if err := j.End(ctx, ipAddress, EndDisconnect); err != nil {
		j.log.Error("failed to journal disconnect", slog.String("peer", ipAddress), sl.Err(err))
	}
}
