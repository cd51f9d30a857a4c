package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"concerto/internal/domain"
)

type ContentRepo struct{ DB *sqlx.DB }

func NewContentRepo(db *sqlx.DB) *ContentRepo { return &ContentRepo{DB: db} }

// Exists reports whether an object of the class with that name is stored.
func (r *ContentRepo) Exists(ctx context.Context, className, name string) (bool, error) {
	var one int
	err := r.DB.GetContext(ctx, &one, r.DB.Rebind(`SELECT 1 FROM content_objects WHERE class_name=? AND name=?`), className, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *ContentRepo) ByName(ctx context.Context, className, name string) (*domain.ContentObject, error) {
	var o domain.ContentObject
	err := r.DB.GetContext(ctx, &o, r.DB.Rebind(`
      SELECT id,class_name,name,description,category,owner_id,payload
      FROM content_objects WHERE class_name=? AND name=?`), className, name)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ContentRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM content_objects`)
	return n, err
}

// SaveAll writes objects in one transaction. Objects already present are
// replaced when overwrite is set; otherwise the insert fails on the unique key.
func (r *ContentRepo) SaveAll(ctx context.Context, objs []*domain.ContentObject, overwrite bool) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, o := range objs {
		if overwrite {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM content_objects WHERE class_name=? AND name=?`), o.ClassName, o.Name); err != nil {
				return err
			}
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO content_objects(id,class_name,name,description,category,owner_id,payload)
			VALUES(?,?,?,?,?,?,?)`),
			o.ID, o.ClassName, o.Name, o.Description, o.Category, o.OwnerID, o.Payload); err != nil {
			return err
		}
	}
	return tx.Commit()
}
