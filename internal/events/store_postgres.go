package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record appends a new event and returns its id. Metadata is enriched with a
// server-side timestamp and source before write; the payload is PII-masked.
func (s *PostgresStore) Record(ctx context.Context, eventType, actorUserID string, payload, metadata map[string]interface{}) (string, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" || actorUserID == "" {
		return "", huberrors.New(huberrors.KindValidation, "event type and actor user id are required")
	}

	enrichedMeta := make(map[string]interface{}, len(metadata)+2)
	for k, v := range metadata {
		enrichedMeta[k] = v
	}
	enrichedMeta["recorded_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	enrichedMeta["source"] = "hub"

	payloadJSON, err := json.Marshal(maskPayload(payload))
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	metaJSON, err := json.Marshal(enrichedMeta)
	if err != nil {
		return "", fmt.Errorf("marshal event metadata: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, type, actor_user_id, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, eventType, actorUserID, payloadJSON, metaJSON, time.Now().UTC())
	if err != nil {
		return "", huberrors.Wrap(huberrors.KindUpstreamUnavailable, "record event", err)
	}
	return id, nil
}

// UserEvents returns a user's events ascending by created_at, optionally
// filtered by type and bounded by [since, until). Reads are paginated
// internally when the window would exceed 1000 rows.
func (s *PostgresStore) UserEvents(ctx context.Context, userID string, since, until time.Time, types []string) ([]Event, error) {
	if since.IsZero() {
		since = time.Now().Add(-defaultWindow)
	}
	if until.IsZero() {
		until = time.Now()
	}

	query := `
		SELECT event_id, type, actor_user_id, payload, metadata, created_at
		FROM events
		WHERE actor_user_id = $1 AND created_at >= $2 AND created_at < $3
	`
	args := []interface{}{userID, since.UTC(), until.UTC()}
	if len(types) > 0 {
		query += " AND type = ANY($4)"
		args = append(args, pq.Array(types))
	}
	query += " ORDER BY created_at ASC, event_id ASC LIMIT " + fmt.Sprint(pageSize)

	var out []Event
	for offset := 0; ; offset += pageSize {
		rows, err := s.db.QueryContext(ctx, query+" OFFSET "+fmt.Sprint(offset), args...)
		if err != nil {
			return nil, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "list user events", err)
		}
		n := 0
		for rows.Next() {
			var e Event
			var payloadRaw, metaRaw []byte
			if err := rows.Scan(&e.EventID, &e.Type, &e.ActorUserID, &payloadRaw, &metaRaw, &e.CreatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			if len(payloadRaw) > 0 {
				_ = json.Unmarshal(payloadRaw, &e.Payload)
			}
			if len(metaRaw) > 0 {
				_ = json.Unmarshal(metaRaw, &e.Metadata)
			}
			out = append(out, e)
			n++
		}
		err = rows.Err()
		rows.Close()
		if err != nil || n < pageSize {
			return out, err
		}
	}
}

var _ Store = (*PostgresStore)(nil)
