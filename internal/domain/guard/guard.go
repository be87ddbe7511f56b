// Package guard authorizes callers before any request reaches the
// ledger engine. Admins may act on every project; everyone else must be
// a member of the target project.
package guard

import (
	"context"

	"geodeck/internal/core/apperror"
	appctx "geodeck/internal/core/context"
	"geodeck/internal/core/id"
)

// Action classifies what the caller wants to do with a project.
type Action string

const (
	ActionRead     Action = "read"
	ActionWrite    Action = "write"
	ActionRollback Action = "rollback"
)

// Authorize checks the authenticated user against the project.
// Returns nil when allowed, Unauthorized/Forbidden otherwise.
func Authorize(ctx context.Context, projectID id.ID, action Action) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if user.IsAdmin {
		return nil
	}
	for _, member := range user.ProjectIDs {
		if member == projectID.String() {
			return nil
		}
	}
	return apperror.NewForbidden("not a member of this project").
		WithDetail("project_id", projectID.String()).
		WithDetail("action", string(action))
}
