package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) GetProfile(ctx context.Context, id string) (entity.Profile, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Profile{}, repository.ErrNotFound
		}
		return entity.Profile{}, err
	}

	var p entity.Profile
	if err := doc.DataTo(&p); err != nil {
		return entity.Profile{}, fmt.Errorf("parse user %s: %w", id, err)
	}
	p.ID = doc.Ref.ID
	return p, nil
}

func (r *firestoreUserRepository) GetProfiles(ctx context.Context, ids []string) (map[string]entity.Profile, error) {
	out := make(map[string]entity.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection("users").Doc(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var p entity.Profile
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("parse user %s: %w", doc.Ref.ID, err)
		}
		p.ID = doc.Ref.ID
		out[p.ID] = p
	}
	return out, nil
}
