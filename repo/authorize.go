package repo

import (
	"context"

	"github.com/Skryldev/userstore/appctx"
	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/models"
)

// authorize allows a mutation of target only when the acting identity in ctx
// is target itself. A context without a user never matches, since persisted
// ids are never appctx.NoUserID.
func authorize(ctx context.Context, op string, target *models.User) error {
	actor := appctx.UserIDFromContext(ctx)
	if actor == appctx.NoUserID || actor != target.ID {
		return apperr.Unauthorized(op, "user %d may not modify user %d", actor, target.ID)
	}
	return nil
}
