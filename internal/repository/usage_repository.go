package repository

import (
	"context"
	"errors"
	"time"

	"llamachat/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementSent counts one prompt sent by the user today
func (r *UsageRepository) IncrementSent(ctx context.Context, userID int) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (user_id, date, messages_sent, messages_received)
		VALUES ($1, $2, 1, 0)
		ON CONFLICT (user_id, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + 1
	`, userID, today)
	return err
}

// IncrementReceived counts one assistant reply delivered to the user today
func (r *UsageRepository) IncrementReceived(ctx context.Context, userID int) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (user_id, date, messages_sent, messages_received)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (user_id, date)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, userID, today)
	return err
}

func (r *UsageRepository) GetTodayUsage(ctx context.Context, userID int) (sent, received int, err error) {
	today := time.Now().Format("2006-01-02")
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(messages_sent, 0), COALESCE(messages_received, 0)
		FROM message_usage WHERE user_id = $1 AND date = $2
	`, userID, today).Scan(&sent, &received)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil // No record means 0 usage
	}
	return sent, received, err
}

func (r *UsageRepository) GetMonthUsage(ctx context.Context, userID int) (sent, received int, err error) {
	firstOfMonth := time.Now().Format("2006-01") + "-01"
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(messages_sent), 0), COALESCE(SUM(messages_received), 0)
		FROM message_usage WHERE user_id = $1 AND date >= $2
	`, userID, firstOfMonth).Scan(&sent, &received)
	return sent, received, err
}

// GetUsageHistory returns the last N days of usage, oldest first
func (r *UsageRepository) GetUsageHistory(ctx context.Context, userID, days int) ([]entities.DailyUsage, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(ctx, `
		SELECT date, messages_sent, messages_received
		FROM message_usage
		WHERE user_id = $1 AND date >= $2
		ORDER BY date ASC
	`, userID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []entities.DailyUsage{}
	for rows.Next() {
		var u entities.DailyUsage
		if err := rows.Scan(&u.Date, &u.MessagesSent, &u.MessagesReceived); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
