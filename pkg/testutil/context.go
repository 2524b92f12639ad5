package testutil

import (
	"context"

	id "leaddesk/pkg/domain"
	"leaddesk/pkg/requestcontext"
)

// AdminContext returns ctx carrying an authenticated admin identity, as the
// credential middleware leaves it after a successful validation.
func AdminContext(ctx context.Context, username string) context.Context {
	return requestcontext.WithAdmin(ctx, username, id.NewSessionID())
}
