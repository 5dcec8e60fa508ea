package firebase

import (
	"context"

	"vendorchat/internal/domain/entity"
)

// GenerateDevToken mints a custom token carrying the role claim. Clients
// exchange it for an ID token with the Firebase SDK.
func (f *FirebaseAuthClient) GenerateDevToken(ctx context.Context, who entity.Identity) (string, error) {
	return f.client.CustomTokenWithClaims(ctx, who.UserID, map[string]interface{}{
		RoleClaim: who.Role.String(),
	})
}
