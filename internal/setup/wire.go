package setup

import (
	"io"
	"io/fs"
	"os"

	"github.com/jmoiron/sqlx"

	"concerto/internal/config"
	"concerto/internal/repos"
	"concerto/internal/security"
	"concerto/internal/services"
	"concerto/internal/syscheck"
	"concerto/resources"
)

// New wires a Setup for cfg against db.
func New(cfg *config.Config, db *sqlx.DB, out io.Writer) (*Setup, error) {
	enc, err := security.NewEncoder(cfg.PasswordEncoder.Algorithm)
	if err != nil {
		return nil, err
	}

	var fixtures fs.FS = resources.StarterContent()
	if cfg.StarterContent.Dir != "" {
		fixtures = os.DirFS(cfg.StarterContent.Dir)
	}

	return &Setup{
		Requirements: cfg.Requirements,
		Roles:        cfg.Roles,
		DefaultUser: services.DefaultUser{
			Username: cfg.DefaultUser.Username,
			Password: cfg.DefaultUser.Password,
			Email:    cfg.DefaultUser.Email,
			Roles:    cfg.DefaultUser.Roles,
		},
		StarterContent: cfg.StarterContent.Files,
		PlatformSQL:    map[string]string{repos.DriverPostgres: resources.PostgresCustomization},

		Checker:  syscheck.NewChecker(),
		Migrator: repos.NewMigrator(db),
		Query:    repos.NewQueryExecutor(db),
		Seeder:   services.NewSeedService(repos.NewRoleRepo(db), repos.NewUserRepo(db), enc),
		Importer: services.NewImportService(repos.NewContentRepo(db), fixtures),
		Out:      out,
	}, nil
}
