package usecase

import (
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
)

func requireUser(tx ReadTx, identity string) (domain.User, error) {
	user, ok := tx.FindUser(identity)
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func requireRole(tx ReadTx, identity string, role domain.Role) (domain.User, error) {
	user, err := requireUser(tx, identity)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role != role {
		return domain.User{}, fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return user, nil
}
