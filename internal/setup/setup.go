// Package setup installs the panel: it checks the host, brings the database
// schema up to date, seeds roles and the default user, and optionally imports
// the starter content. Steps run in order and the first failure stops the run.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"concerto/internal/config"
	"concerto/internal/domain"
	applog "concerto/internal/log"
	"concerto/internal/repos"
	"concerto/internal/services"
	"concerto/internal/syscheck"
)

var (
	// ErrConfiguration reports an unmet host requirement.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrImportFailed reports a starter content file whose import had errors.
	ErrImportFailed = errors.New("starter content import failed")
)

type EnvironmentChecker interface {
	CheckExecutable(ctx context.Context, req config.ExecutableRequirement) syscheck.Status
	CheckPath(req config.PathRequirement) syscheck.Status
}

type SchemaMigrator interface {
	Update(ctx context.Context, force bool) (*repos.MigrationResult, error)
}

type QueryExecutor interface {
	DriverName() string
	Exec(ctx context.Context, sql string) (int64, error)
}

type Seeder interface {
	EnsureRole(ctx context.Context, name string) (domain.Role, bool, error)
	EnsureDefaultUser(ctx context.Context, def services.DefaultUser, seeded map[string]domain.Role) (*domain.User, bool, error)
}

type FixtureImporter interface {
	ImportFromFile(ctx context.Context, user *domain.User, path, category string, overwrite bool) ([]domain.ImportResult, error)
}

// Options select the optional steps.
type Options struct {
	Env            string
	Check          bool
	StarterContent bool
}

// Result summarises a successful run.
type Result struct {
	Migrations    []string
	Customized    bool
	RolesCreated  []string
	RolesFound    []string
	User          *domain.User
	UserCreated   bool
	ImportedFiles []string
}

type Setup struct {
	Requirements   config.Requirements
	Roles          []string
	DefaultUser    services.DefaultUser
	StarterContent []string
	// PlatformSQL maps a driver name to the script run after migrations.
	PlatformSQL map[string]string

	Checker  EnvironmentChecker
	Migrator SchemaMigrator
	Query    QueryExecutor
	Seeder   Seeder
	Importer FixtureImporter

	Out io.Writer
}

func (s *Setup) say(format string, args ...any) {
	fmt.Fprintf(s.Out, format+"\n", args...)
}

// Run executes the enabled steps in order.
func (s *Setup) Run(ctx context.Context, opts Options) (*Result, error) {
	s.say("concerto setup (%s)", opts.Env)
	applog.Info("setup.start", map[string]any{"env": opts.Env, "check": opts.Check, "starter_content": opts.StarterContent})

	res := &Result{}
	if opts.Check {
		if err := s.verifySystem(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.updateSchema(ctx, res); err != nil {
		return nil, err
	}
	if err := s.customizePlatform(ctx, res); err != nil {
		return nil, err
	}
	if err := s.seed(ctx, res); err != nil {
		return nil, err
	}
	if opts.StarterContent {
		if err := s.importStarterContent(ctx, res); err != nil {
			return res, err
		}
	}
	applog.Info("setup.done", nil)
	return res, nil
}

func (s *Setup) verifySystem(ctx context.Context) error {
	s.say("verifying system configuration...")

	s.say(" -> verifying installed software...")
	for _, req := range s.Requirements.Executables {
		if req.VersionMin != "" {
			s.say("   -> checking if %s (version >= %s) is available in this system...", req.Command, req.VersionMin)
		} else {
			s.say("   -> checking if %s is available in this system...", req.Command)
		}
		st := s.Checker.CheckExecutable(ctx, req)
		if !st.OK {
			applog.Error("setup.check.executable", nil, map[string]any{"name": req.Name, "errors": st.Errors})
			return fmt.Errorf("%w: %s", ErrConfiguration, st.ErrorsString())
		}
		s.say("     -> all ok")
	}

	s.say(" -> verifying directories...")
	for _, req := range s.Requirements.Paths {
		nice := syscheck.Nicename(req)
		s.say("   -> verifying %s, please wait...", nice)
		st := s.Checker.CheckPath(req)
		if !st.OK {
			applog.Error("setup.check.path", nil, map[string]any{"name": req.Name, "errors": st.Errors})
			return fmt.Errorf("%w: %s", ErrConfiguration, st.ErrorsString())
		}
		if st.Fixed {
			applog.Warn("setup.check.path.fixed", map[string]any{"name": req.Name, "path": req.Path})
			s.say("     -> fixed a problem discovered with %s", nice)
		}
		s.say("     -> all ok")
	}
	return nil
}

func (s *Setup) updateSchema(ctx context.Context, res *Result) error {
	s.say("updating database...")
	mr, err := s.Migrator.Update(ctx, true)
	if err != nil {
		applog.Error("setup.schema.update", err, nil)
		return fmt.Errorf("updating database schema: %w", err)
	}
	for _, m := range mr.Applied {
		s.say(" -> applied %s", m)
		applog.Audit("setup.schema.applied", map[string]any{"migration": m})
	}
	res.Migrations = mr.Applied
	s.say("database up to date")
	return nil
}

func (s *Setup) customizePlatform(ctx context.Context, res *Result) error {
	script, ok := s.PlatformSQL[s.Query.DriverName()]
	if !ok || script == "" {
		return nil
	}
	s.say("applying %s customization...", s.Query.DriverName())
	if _, err := s.Query.Exec(ctx, script); err != nil {
		applog.Error("setup.platform.customize", err, map[string]any{"driver": s.Query.DriverName()})
		return fmt.Errorf("applying %s customization: %w", s.Query.DriverName(), err)
	}
	res.Customized = true
	return nil
}

func (s *Setup) seed(ctx context.Context, res *Result) error {
	s.say("checking for user roles...")
	seeded := make(map[string]domain.Role, len(s.Roles))
	for _, name := range s.Roles {
		role, created, err := s.Seeder.EnsureRole(ctx, name)
		if err != nil {
			return err
		}
		seeded[name] = role
		if created {
			res.RolesCreated = append(res.RolesCreated, name)
			s.say("%s created", name)
		} else {
			res.RolesFound = append(res.RolesFound, name)
			s.say("%s found", name)
		}
	}

	s.say("checking for default user...")
	u, created, err := s.Seeder.EnsureDefaultUser(ctx, s.DefaultUser, seeded)
	if err != nil {
		return err
	}
	res.User, res.UserCreated = u, created
	if created {
		s.say("default user created")
	} else {
		s.say("default user found")
	}
	return nil
}

// importStarterContent stops at the first file with an erroneous entry.
// Files imported before it are kept.
func (s *Setup) importStarterContent(ctx context.Context, res *Result) error {
	s.say("importing starter content...")
	for _, file := range s.StarterContent {
		results, err := s.Importer.ImportFromFile(ctx, res.User, file, "", false)
		if err == nil {
			err = firstError(results)
		}
		if err != nil {
			applog.Error("setup.import", err, map[string]any{"file": file})
			s.say("importing %s failed!", file)
			s.say("starter content importing failed! (starter content might be already present)")
			return fmt.Errorf("%w: %s: %v", ErrImportFailed, file, err)
		}
		res.ImportedFiles = append(res.ImportedFiles, file)
		s.say("imported %s successfully", file)
	}
	s.say("starter content importing finished")
	return nil
}

func firstError(results []domain.ImportResult) error {
	for _, r := range results {
		if r.Errors {
			msg := "import error"
			if len(r.Messages) > 0 {
				msg = r.Messages[0]
			}
			return fmt.Errorf("%s %s: %s", r.ClassName, r.Name, msg)
		}
	}
	return nil
}
