package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/contact-center/internal/domain"
)

// AdvisorRepository reads advisor availability from users, inboxes and channel_states.
type AdvisorRepository interface {
	// ListAvailable returns active users marked available on channel that own an
	// inbox for it, ordered by user id so every process sees the same rotation.
	ListAvailable(ctx context.Context, channel domain.Channel) ([]domain.Advisor, error)
}

type advisorRepository struct {
	pool *pgxpool.Pool
}

// NewAdvisorRepository instantiates the repository.
func NewAdvisorRepository(pool *pgxpool.Pool) AdvisorRepository {
	return &advisorRepository{pool: pool}
}

func (r *advisorRepository) ListAvailable(ctx context.Context, channel domain.Channel) ([]domain.Advisor, error) {
	const query = `
        SELECT DISTINCT ON (u.id) u.id, i.id, u.name, u.email
        FROM users u
        JOIN channel_states cs ON cs.user_id = u.id AND cs.channel = $1 AND cs.available
        JOIN inboxes i ON i.user_id = u.id AND i.channel = $1
        WHERE u.active_flag
        ORDER BY u.id, i.created_at ASC`
	rows, err := r.pool.Query(ctx, query, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Advisor
	for rows.Next() {
		var adv domain.Advisor
		if err := rows.Scan(&adv.UserID, &adv.InboxID, &adv.Name, &adv.Email); err != nil {
			return nil, err
		}
		result = append(result, adv)
	}
	return result, rows.Err()
}
