package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
)

// DefaultMinRatingSamples is the number of ratings an agent needs before
// SuccessRate reports a value.
const DefaultMinRatingSamples = 5

// Store persists handoff telemetry in PostgreSQL. It implements
// telemetry.Sink, telemetry.History, telemetry.Ratings and
// metrics.SuccessRates.
type Store struct {
	pool       *pgxpool.Pool
	minSamples int
}

// NewStore creates a new Store backed by the given connection pool.
// minSamples <= 0 selects DefaultMinRatingSamples.
func NewStore(pool *pgxpool.Pool, minSamples int) *Store {
	if minSamples <= 0 {
		minSamples = DefaultMinRatingSamples
	}
	return &Store{pool: pool, minSamples: minSamples}
}

// Track appends ev to handoff_events. A second executed event for the same
// handoff is ignored. ev.ID and ev.CreatedAt are filled in when empty.
func (s *Store) Track(ctx context.Context, ev *event.HandoffEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	const q = `
		INSERT INTO handoff_events (
			id, event_type, handoff_id, user_id, session_id, source_agent_id, target_agent_id,
			confidence, handoff_type, intent, execution_id, rating, feedback, payload, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, COALESCE($16, now()))
		ON CONFLICT (handoff_id) WHERE event_type = 'handoff.executed' DO NOTHING
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, q,
		ev.ID, string(ev.Type), ev.HandoffID, ev.UserID, ev.SessionID, ev.SourceAgentID, ev.TargetAgentID,
		ev.Confidence, ev.HandoffType, event.TruncateIntent(ev.Intent), ev.ExecutionID, ev.Rating, ev.Feedback,
		nullJSON(ev.Payload), ev.RequestID, nullTime(ev.CreatedAt),
	).Scan(&ev.CreatedAt)
	if err != nil {
		if ev.Type == event.TypeHandoffExecuted && isNoRows(err) {
			return nil
		}
		return fmt.Errorf("track %s %s: %w", ev.Type, ev.HandoffID, err)
	}
	return nil
}

// eventColumns is the SELECT column list for handoff_events queries.
const eventColumns = `id, event_type, handoff_id, user_id, session_id, source_agent_id, target_agent_id,
	confidence, handoff_type, intent, execution_id, rating, feedback, payload, request_id, created_at`

func scanEvent(row scannable, ev *event.HandoffEvent) error {
	var typ string
	err := row.Scan(
		&ev.ID, &typ, &ev.HandoffID, &ev.UserID, &ev.SessionID, &ev.SourceAgentID, &ev.TargetAgentID,
		&ev.Confidence, &ev.HandoffType, &ev.Intent, &ev.ExecutionID, &ev.Rating, &ev.Feedback,
		&ev.Payload, &ev.RequestID, &ev.CreatedAt,
	)
	ev.Type = event.Type(typ)
	return err
}

// ListHandoffs returns the user's events newest first.
func (s *Store) ListHandoffs(ctx context.Context, filter telemetry.HistoryFilter) ([]event.HandoffEvent, error) {
	args := []any{filter.UserID}
	conditions := []string{"user_id = $1"}
	argIdx := 2

	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", argIdx))
		args = append(args, filter.SessionID)
		argIdx++
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", argIdx))
		args = append(args, types)
		argIdx++
	}
	if filter.After != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIdx))
		args = append(args, *filter.After)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf(`SELECT %s FROM handoff_events WHERE %s ORDER BY created_at DESC, id LIMIT $%d`,
		eventColumns, strings.Join(conditions, " AND "), argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list handoffs for %s: %w", filter.UserID, err)
	}
	defer rows.Close()

	var events []event.HandoffEvent
	for rows.Next() {
		var ev event.HandoffEvent
		if err := scanEvent(rows, &ev); err != nil {
			return nil, fmt.Errorf("scan handoff event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orEmpty(events), nil
}

// RateHandoff upserts the rating of an executed handoff.
func (s *Store) RateHandoff(ctx context.Context, handoffID string, rating int, feedback string) (*telemetry.Rating, error) {
	const q = `
		INSERT INTO handoff_ratings (handoff_id, target_agent_id, user_id, session_id, rating, feedback)
		SELECT handoff_id, target_agent_id, user_id, session_id, $2, $3
		FROM handoff_events
		WHERE handoff_id = $1 AND event_type = 'handoff.executed'
		ON CONFLICT (handoff_id) DO UPDATE
			SET rating = EXCLUDED.rating, feedback = EXCLUDED.feedback, updated_at = now()
		RETURNING handoff_id, target_agent_id, user_id, session_id, rating, feedback`

	var r telemetry.Rating
	err := s.pool.QueryRow(ctx, q, handoffID, rating, feedback).Scan(
		&r.HandoffID, &r.TargetAgentID, &r.UserID, &r.SessionID, &r.Rating, &r.Feedback,
	)
	if err != nil {
		return nil, notFoundWrap(err, "rate handoff %s", handoffID)
	}
	return &r, nil
}

// SuccessRate returns the percentage of ratings >= 4 for agentID. ok is false
// until the agent has collected the configured minimum number of ratings.
func (s *Store) SuccessRate(ctx context.Context, agentID string) (float64, bool, error) {
	const q = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE rating >= 4)
		FROM handoff_ratings WHERE target_agent_id = $1`

	var total, good int
	if err := s.pool.QueryRow(ctx, q, agentID).Scan(&total, &good); err != nil {
		return 0, false, fmt.Errorf("success rate %s: %w", agentID, err)
	}
	if total < s.minSamples {
		return 0, false, nil
	}
	return float64(good) * 100 / float64(total), true, nil
}
