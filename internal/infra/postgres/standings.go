package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-attempt-service/internal/domain"
)

// StandingsReader computes leaderboard standings with raw aggregation SQL
// over completed attempts. It runs on its own pgx pool so heavy read-time
// aggregation never competes with the transactional write path for
// connections.
type StandingsReader struct {
	pool *pgxpool.Pool
}

func NewStandingsReader(pool *pgxpool.Pool) *StandingsReader {
	return &StandingsReader{pool: pool}
}

const standingsSelect = `
SELECT qa.user_id,
       u.name,
       u.image,
       COALESCE(SUM(qa.score), 0)                 AS total_score,
       COALESCE(SUM(qa.total_points), 0)          AS points,
       COALESCE(AVG(qa.average_response_time), 0) AS avg_response,
       COUNT(*)                                   AS attempts
FROM quiz_attempts qa
LEFT JOIN users u ON u.id = qa.user_id
WHERE qa.completed_at IS NOT NULL
  AND qa.is_practice_mode = FALSE`

const standingsOrder = `
GROUP BY qa.user_id, u.name, u.image
ORDER BY points DESC, avg_response ASC, qa.user_id ASC
LIMIT `

func (r *StandingsReader) GlobalStandings(ctx context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	query := standingsSelect
	args := []interface{}{}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf("\n  AND qa.completed_at >= $%d", len(args))
	}
	args = append(args, limit)
	query += standingsOrder + fmt.Sprintf("$%d", len(args))
	return r.queryStandings(ctx, query, args)
}

// TopicStandings ranks users by correct answers on questions of the given
// topics. It aggregates answer records rather than attempts, so a user's
// standing on a topic reflects every question of that topic they answered,
// regardless of which quiz it appeared in.
func (r *StandingsReader) TopicStandings(ctx context.Context, topicIDs []string, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	args := []interface{}{topicIDs}
	query := `
SELECT ua.user_id,
       u.name,
       u.image,
       COALESCE(AVG(CASE WHEN ua.is_correct THEN 100.0 ELSE 0.0 END), 0) AS accuracy,
       (COUNT(*) FILTER (WHERE ua.is_correct))::float8                   AS correct,
       COALESCE(AVG(ua.time_spent), 0)                                   AS avg_response,
       COUNT(DISTINCT ua.attempt_id)                                     AS attempts
FROM user_answers ua
JOIN questions qn ON qn.id = ua.question_id
JOIN quiz_attempts qa ON qa.id = ua.attempt_id
LEFT JOIN users u ON u.id = ua.user_id
WHERE qn.topic_id = ANY($1)
  AND qa.is_practice_mode = FALSE`
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf("\n  AND ua.answered_at >= $%d", len(args))
	}
	args = append(args, limit)
	query += `
GROUP BY ua.user_id, u.name, u.image
ORDER BY correct DESC, avg_response ASC, ua.user_id ASC
LIMIT ` + fmt.Sprintf("$%d", len(args))
	return r.queryStandings(ctx, query, args)
}

func (r *StandingsReader) queryStandings(ctx context.Context, query string, args []interface{}) ([]domain.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.UserName, &e.UserImage, &e.Score, &e.TotalPoints, &e.AverageResponseTime, &e.Attempts); err != nil {
			return nil, fmt.Errorf("scan standings row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read standings: %w", err)
	}
	return entries, nil
}
