package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"concerto/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// FindByUsername returns matching users with their roles loaded.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) ([]domain.User, error) {
	var users []domain.User
	err := r.DB.SelectContext(ctx, &users, r.DB.Rebind(`SELECT id,username,email,password_hash,salt FROM users WHERE username=?`), username)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Roles, err = r.rolesOf(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT id,username,email,password_hash,salt FROM users WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	if u.Roles, err = r.rolesOf(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create persists the user and its role links in one transaction.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO users(id,username,email,password_hash,salt)
		VALUES(:id,:username,:email,:password_hash,:salt)`, u); err != nil {
		return err
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO user_roles(user_id,role_id) VALUES(?,?)`), u.ID, role.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *UserRepo) rolesOf(ctx context.Context, userID string) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.DB.SelectContext(ctx, &roles, r.DB.Rebind(`
      SELECT r.id,r.name,r.role
      FROM user_roles ur
      JOIN roles r ON r.id=ur.role_id
      WHERE ur.user_id=?
      ORDER BY r.name`), userID)
	return roles, err
}
