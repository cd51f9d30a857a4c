package repos

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

type migration struct {
	version int
	name    string
	file    string // path inside migrationsFS
}

// MigrationResult describes one schema update run.
type MigrationResult struct {
	Applied []string
	Pending []string
}

// Migrator brings the schema of the connected database up to date using the
// versioned scripts embedded for its driver.
type Migrator struct {
	DB *sqlx.DB
	fs fs.FS
}

func NewMigrator(db *sqlx.DB) *Migrator { return &Migrator{DB: db, fs: migrationsFS} }

// Update lists pending migrations and, when force is set, applies them in
// version order. Without force nothing is written.
func (m *Migrator) Update(ctx context.Context, force bool) (*MigrationResult, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("creating schema_migrations: %w", err)
	}
	migs, err := m.load()
	if err != nil {
		return nil, err
	}

	var applied []int
	if err := m.DB.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	res := &MigrationResult{}
	for _, mg := range migs {
		if done[mg.version] {
			continue
		}
		label := fmt.Sprintf("%04d_%s", mg.version, mg.name)
		if !force {
			res.Pending = append(res.Pending, label)
			continue
		}
		if err := m.apply(ctx, mg); err != nil {
			return res, fmt.Errorf("applying migration %s: %w", label, err)
		}
		res.Applied = append(res.Applied, label)
	}
	return res, nil
}

func (m *Migrator) apply(ctx context.Context, mg migration) error {
	text, err := fs.ReadFile(m.fs, mg.file)
	if err != nil {
		return err
	}
	tx, err := m.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(text)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations(version, name) VALUES(?, ?)`), mg.version, mg.name); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations(
  version INTEGER PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}

func (m *Migrator) load() ([]migration, error) {
	dir := path.Join("migrations", m.DB.DriverName())
	entries, err := fs.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: no migrations for %q", ErrUnsupportedDriver, m.DB.DriverName())
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mm := migFileRe.FindStringSubmatch(e.Name())
		if mm == nil {
			continue
		}
		v, _ := strconv.Atoi(mm[1])
		out = append(out, migration{version: v, name: mm[2], file: path.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
