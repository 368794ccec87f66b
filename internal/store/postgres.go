package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimpipe/claimpipe/internal/claims"
	"github.com/claimpipe/claimpipe/internal/event"
)

//go:embed schema.sql
var schemaSQL string

// Postgres implements Sink on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the events and claims tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveEvent inserts the event row, then each claim tagged with the generated
// event id and the event's actor id, all in one transaction. Any failure
// rolls the whole unit back.
func (s *Postgres) SaveEvent(ctx context.Context, ev event.Event, cs []claims.Claim) (int64, error) {
	attachments, err := json.Marshal(ev.Message.Attachments)
	if err != nil {
		return 0, fmt.Errorf("marshal attachments: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var eventID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO events (platform, chat_id, message_id, sender_id, sender_username, sender_name, ts, kind, text, attachments, raw_sig)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		ev.Platform,
		strconv.FormatInt(ev.Chat.ID, 10),
		strconv.FormatInt(ev.Message.ID, 10),
		strconv.FormatInt(ev.Message.From.ID, 10),
		ev.Message.From.Username,
		ev.Message.From.Name,
		ev.Message.Date,
		string(ev.Message.Kind),
		ev.Message.Text,
		attachments,
		ev.RawSig,
	).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	actor := strconv.FormatInt(ev.Message.From.ID, 10)
	for _, c := range cs {
		payload, err := json.Marshal(c.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal claim payload: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO claims (event_id, actor_id, type, payload)
			VALUES ($1, $2, $3, $4)
		`, eventID, actor, string(c.Type), payload)
		if err != nil {
			return 0, fmt.Errorf("insert claim: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return eventID, nil
}

// LastCommitments returns the most recent commitment claim per (actor, verb)
// key from the persisted claim log.
func (s *Postgres) LastCommitments(ctx context.Context) ([]LastCommitment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (actor_id, payload->>'verb') actor_id, payload
		FROM claims
		WHERE type = 'commitment'
		ORDER BY actor_id, payload->>'verb', id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query last commitments: %w", err)
	}
	defer rows.Close()

	var out []LastCommitment
	for rows.Next() {
		var lc LastCommitment
		var payload []byte
		if err := rows.Scan(&lc.Actor, &payload); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		if err := json.Unmarshal(payload, &lc.Commitment); err != nil {
			// A malformed payload in the log is skipped, not fatal:
			// the cache is best-effort.
			continue
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
