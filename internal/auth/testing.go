package auth

import "context"

// SetIdentityForTest injects an identity into the context for testing purposes.
func SetIdentityForTest(ctx context.Context, gameID, player string) context.Context {
	return WithIdentity(ctx, Identity{Player: player, GameID: gameID})
}
