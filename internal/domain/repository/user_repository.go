package repository

import (
	"context"

	"vendorchat/internal/domain/entity"
)

// UserRepository reads display profiles owned by the profile service.
type UserRepository interface {
	GetProfile(ctx context.Context, id string) (entity.Profile, error)
	GetProfiles(ctx context.Context, ids []string) (map[string]entity.Profile, error)
}
