package adapters

import (
	"context"

	"leaddesk/internal/auth/models"
	authmw "leaddesk/pkg/platform/middleware/auth"
)

// sessionValidator is implemented by the auth service.
type sessionValidator interface {
	Validate(ctx context.Context, credential string) (*models.Session, error)
}

// CredentialValidator adapts the auth service to authmw.CredentialValidator
// so the middleware does not depend on auth models.
type CredentialValidator struct {
	svc sessionValidator
}

func NewCredentialValidator(svc sessionValidator) *CredentialValidator {
	return &CredentialValidator{svc: svc}
}

func (a *CredentialValidator) ValidateCredential(ctx context.Context, credential string) (*authmw.AdminClaims, error) {
	session, err := a.svc.Validate(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &authmw.AdminClaims{
		Username:  session.Username,
		SessionID: session.ID,
	}, nil
}
