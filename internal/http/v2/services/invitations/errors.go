package invitations

import (
	"errors"
	"fmt"

	"github.com/aulaviva/invites/internal/domain/repository"
)

// Tipos de error del flujo de invitaciones. Los controllers los mapean a
// status HTTP; nunca se colapsan entre sí.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInvitation = errors.New("invalid invitation")
	ErrInvitationExpired = errors.New("invitation expired")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage failure")
	ErrBadInput          = errors.New("bad input")
	ErrDelivery          = errors.New("delivery failure")

	// ErrInvitationUsed es un InvalidInvitation: errors.Is(err, ErrInvalidInvitation) vale.
	ErrInvitationUsed = fmt.Errorf("%w: already used", ErrInvalidInvitation)
)

// storageErr envuelve un error de repositorio como ErrStorage conservando la causa.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// notFoundOr traduce ErrNotFound del repositorio a kind y el resto a ErrStorage.
func notFoundOr(op string, err error, kind error) error {
	if repository.IsNotFound(err) {
		return kind
	}
	return storageErr(op, err)
}
