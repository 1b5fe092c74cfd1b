package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/repository"
)

// SQLite allows 999 bound variables per statement by default.
const maxIDsPerQuery = 500

var cardColumns = []string{
	"id", "stability", "difficulty", "elapsed_days", "scheduled_days", "learning_steps",
	"reps", "lapses", "state", "last_review", "due", "review_count", "created_at", "updated_at",
}

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *cardRepository) Insert(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting card: id=%s", c.ID)

	s := c.Scheduling
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cards (id, stability, difficulty, elapsed_days, scheduled_days, learning_steps, reps, lapses, state, last_review, due, review_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, s.Stability, s.Difficulty, s.ElapsedDays, s.ScheduledDays, s.LearningSteps, s.Reps, s.Lapses,
		s.State.String(), formatTime(s.LastReview), formatTime(s.Due), c.ReviewCount,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		log.Error("failed to insert card: %v", err)
	}
	return err
}

func (r *cardRepository) Get(ctx context.Context, id string) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: id=%s", id)

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("card not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *cardRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("finding %d cards by id", len(ids))

	out, err := findByIDs(ctx, r.db, ids)
	if err != nil {
		log.Error("failed to find cards: %v", err)
		return nil, err
	}
	log.Debug("found %d of %d cards", len(out), len(ids))
	return out, nil
}

func findByIDs(ctx context.Context, q queryer, ids []string) (map[string]models.Card, error) {
	out := make(map[string]models.Card, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		chunk := ids[start:min(start+maxIDsPerQuery, len(ids))]
		query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": chunk}).ToSql()
		if err != nil {
			return nil, err
		}
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			c, err := scanCard(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[c.ID] = c
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *cardRepository) ApplyBatch(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("applying batch of %d updates", len(items))

	res := models.BatchUpdateResult{UpdatedIDs: []string{}, MissingIDs: []string{}}
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.CardID
		}
		existing, err := findByIDs(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("load cards: %w", err)
		}

		now := time.Now()
		for _, it := range items {
			cur, ok := existing[it.CardID]
			if !ok {
				res.MissingIDs = append(res.MissingIDs, it.CardID)
				continue
			}
			res.UpdatedIDs = append(res.UpdatedIDs, it.CardID)

			next := normalize(models.Sanitize(it.SchedulingState))
			if cur.Scheduling.Equal(next) {
				continue
			}
			if err := updateScheduling(ctx, tx, it.CardID, next, now); err != nil {
				return err
			}
			reviewedAt := it.GradedAt
			if reviewedAt.IsZero() {
				reviewedAt = next.LastReview
			}
			if err := insertHistory(ctx, tx, models.ReviewHistory{
				CardID:     it.CardID,
				Grade:      it.Grade,
				ReviewedAt: reviewedAt,
			}); err != nil {
				return err
			}
			res.Modified++
		}
		return nil
	})
	if err != nil {
		log.Error("failed to apply batch: %v", err)
		return models.BatchUpdateResult{}, err
	}
	log.Debug("batch applied: modified=%d, missing=%d", res.Modified, len(res.MissingIDs))
	return res, nil
}

func (r *cardRepository) ApplyReview(ctx context.Context, id string, state models.SchedulingState, review models.ReviewHistory) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("applying review: id=%s, grade=%s", id, review.Grade)

	found := false
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if err := updateScheduling(ctx, tx, id, normalize(state), time.Now()); err != nil {
			return err
		}
		review.CardID = id
		return insertHistory(ctx, tx, review)
	})
	if err != nil {
		log.Error("failed to apply review: %v", err)
		return false, err
	}
	return found, nil
}

func (r *cardRepository) DueCards(ctx context.Context, now time.Time, limit, offset int) ([]models.DueCard, int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("fetching due cards: limit=%d, offset=%d", limit, offset)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	due := duePredicate(now)

	countSQL, countArgs, err := sqlBuilder.Select("COUNT(*)").From("cards").Where(due).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		log.Error("failed to count due cards: %v", err)
		return nil, 0, err
	}

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").
		Where(due).
		OrderBy("COALESCE(due, created_at) ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query due cards: %v", err)
		return nil, 0, err
	}
	defer rows.Close()

	cards := []models.DueCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, 0, err
		}
		cards = append(cards, models.DueCard{ID: c.ID, Scheduling: c.Scheduling})
	}
	log.Debug("found %d due cards of %d", len(cards), total)
	return cards, total, rows.Err()
}

func (r *cardRepository) Delete(ctx context.Context, id string) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("deleting card: id=%s", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *cardRepository) ReviewHistory(ctx context.Context, cardID string, limit int) ([]models.ReviewHistory, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	if limit <= 0 {
		limit = 50
	}

	query, args, err := sqlBuilder.Select("id", "card_id", "grade", "time_seconds", "reviewed_at").
		From("review_history").
		Where(squirrel.Eq{"card_id": cardID}).
		OrderBy("reviewed_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query review history: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := []models.ReviewHistory{}
	for rows.Next() {
		var h models.ReviewHistory
		var grade string
		var reviewedAt sql.NullString
		if err := rows.Scan(&h.ID, &h.CardID, &grade, &h.TimeSeconds, &reviewedAt); err != nil {
			return nil, err
		}
		if h.Grade, err = models.ParseGrade(grade); err != nil {
			return nil, err
		}
		t, err := parseTime(reviewedAt)
		if err != nil {
			return nil, err
		}
		if t != nil {
			h.ReviewedAt = *t
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func duePredicate(now time.Time) squirrel.Sqlizer {
	return squirrel.Or{
		squirrel.Eq{"due": nil},
		squirrel.LtOrEq{"due": formatTime(now)},
	}
}

func updateScheduling(ctx context.Context, tx *sql.Tx, id string, s models.SchedulingState, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
UPDATE cards
SET stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?, learning_steps = ?,
    reps = ?, lapses = ?, state = ?, last_review = ?, due = ?,
    review_count = review_count + 1, updated_at = ?
WHERE id = ?
`, s.Stability, s.Difficulty, s.ElapsedDays, s.ScheduledDays, s.LearningSteps,
		s.Reps, s.Lapses, s.State.String(), formatTime(s.LastReview), formatTime(s.Due),
		formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update card %s: %w", id, err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, h models.ReviewHistory) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO review_history (card_id, grade, time_seconds, reviewed_at)
VALUES (?, ?, ?, ?)
`, h.CardID, h.Grade.String(), h.TimeSeconds, formatTime(h.ReviewedAt))
	if err != nil {
		return fmt.Errorf("insert review history for %s: %w", h.CardID, err)
	}
	return nil
}

// scanCard reads a cards row. Missing or unreadable scheduling columns are
// filled by SchedulingRecord.Hydrate.
func scanCard(row scanner) (models.Card, error) {
	var (
		c                                            models.Card
		stability, difficulty, elapsed, scheduled    sql.NullFloat64
		steps, reps, lapses                          sql.NullInt64
		state, lastReview, due, createdAt, updatedAt sql.NullString
	)
	if err := row.Scan(&c.ID, &stability, &difficulty, &elapsed, &scheduled, &steps,
		&reps, &lapses, &state, &lastReview, &due, &c.ReviewCount, &createdAt, &updatedAt); err != nil {
		return models.Card{}, err
	}

	var rec models.SchedulingRecord
	rec.Stability = nullFloat(stability)
	rec.Difficulty = nullFloat(difficulty)
	rec.ElapsedDays = nullFloat(elapsed)
	rec.ScheduledDays = nullFloat(scheduled)
	rec.LearningSteps = nullInt(steps)
	rec.Reps = nullInt(reps)
	rec.Lapses = nullInt(lapses)
	if state.Valid {
		if st, err := models.ParseState(state.String); err == nil {
			rec.State = &st
		}
	}
	// unparseable timestamps are treated as missing
	rec.LastReview, _ = parseTime(lastReview)
	rec.Due, _ = parseTime(due)

	if t, _ := parseTime(createdAt); t != nil {
		c.CreatedAt = *t
	}
	if t, _ := parseTime(updatedAt); t != nil {
		c.UpdatedAt = *t
	}
	c.Scheduling = rec.Hydrate(c.CreatedAt)
	return c, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// normalize brings timestamps to the stored representation so that
// comparisons against stored rows are exact.
func normalize(s models.SchedulingState) models.SchedulingState {
	s.LastReview = s.LastReview.UTC()
	s.Due = s.Due.UTC()
	return s
}
