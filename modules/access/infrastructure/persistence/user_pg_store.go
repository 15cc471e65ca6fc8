package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

type UserPGStore struct {
	q queryExecer
}

func NewUserPGStore(q queryExecer) ports.UserStore {
	return &UserPGStore{q: q}
}

func (s *UserPGStore) FindUser(ctx context.Context, userID string) (types.User, error) {
	var (
		u    types.User
		role string
	)
	err := s.q.QueryRow(ctx, `
SELECT id::text, tenant_id::text, role, active
FROM access.users
WHERE id = $1;
`, userID).Scan(&u.ID, &u.TenantID, &role, &u.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.User{}, ports.ErrUserNotFound
		}
		return types.User{}, err
	}
	u.Role = types.Role(role)
	return u, nil
}
