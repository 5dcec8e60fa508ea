package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

type postgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &postgresUserRepository{pool: pool}
}

func (r *postgresUserRepository) GetProfile(ctx context.Context, id string) (entity.Profile, error) {
	var p entity.Profile
	err := r.pool.QueryRow(ctx, `SELECT id, name, avatar_url FROM users WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Profile{}, repository.ErrNotFound
	}
	return p, err
}

func (r *postgresUserRepository) GetProfiles(ctx context.Context, ids []string) (map[string]entity.Profile, error) {
	out := make(map[string]entity.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, avatar_url FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p entity.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarURL); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
