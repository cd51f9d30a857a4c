package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"concerto/internal/domain"
)

type RoleRepo struct{ DB *sqlx.DB }

func NewRoleRepo(db *sqlx.DB) *RoleRepo { return &RoleRepo{DB: db} }

// FindByName returns every role whose name and role columns both equal name.
// Seeding keeps this to at most one row.
func (r *RoleRepo) FindByName(ctx context.Context, name string) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.DB.SelectContext(ctx, &roles, r.DB.Rebind(`SELECT id,name,role FROM roles WHERE name=? AND role=? ORDER BY created_at`), name, name)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// Create persists role, assigning an ID when it has none.
func (r *RoleRepo) Create(ctx context.Context, role *domain.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	_, err := r.DB.NamedExecContext(ctx, `INSERT INTO roles(id,name,role) VALUES(:id,:name,:role)`, role)
	return err
}

func (r *RoleRepo) All(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := r.DB.SelectContext(ctx, &roles, `SELECT id,name,role FROM roles ORDER BY name`); err != nil {
		return nil, err
	}
	return roles, nil
}
