package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"vendorchat/internal/domain/entity"
)

// RoleClaim is the custom claim that carries the caller's role.
const RoleClaim = "role"

type idTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CustomTokenWithClaims(ctx context.Context, uid string, claims map[string]interface{}) (string, error)
}

// FirebaseAuthClient verifies Firebase ID tokens and reads the role claim.
type FirebaseAuthClient struct {
	client idTokenClient
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{client: client}
}

func (f *FirebaseAuthClient) Verify(ctx context.Context, token string) (entity.Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return entity.Identity{}, err
	}
	return identityFromToken(result)
}

func identityFromToken(t *auth.Token) (entity.Identity, error) {
	raw, ok := t.Claims[RoleClaim].(string)
	if !ok {
		return entity.Identity{}, fmt.Errorf("firebase: token for %s has no %q claim", t.UID, RoleClaim)
	}
	role, err := entity.ParseRole(raw)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("firebase: %w", err)
	}
	return entity.Identity{UserID: t.UID, Role: role}, nil
}
