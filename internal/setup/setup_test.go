package setup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concerto/internal/config"
	"concerto/internal/domain"
	"concerto/internal/repos"
	"concerto/internal/services"
	"concerto/internal/syscheck"
)

// calls records the order in which collaborators are used.
type calls []string

type fakeChecker struct {
	log      *calls
	badExec  string
	badPath  string
	fixPaths map[string]bool
}

func (f *fakeChecker) CheckExecutable(_ context.Context, req config.ExecutableRequirement) syscheck.Status {
	*f.log = append(*f.log, "exec:"+req.Name)
	if req.Name == f.badExec {
		return syscheck.Status{OK: false, Errors: []string{req.Name + ": version 3.0 found, 4.0 or newer required"}}
	}
	return syscheck.Status{OK: true}
}

func (f *fakeChecker) CheckPath(req config.PathRequirement) syscheck.Status {
	*f.log = append(*f.log, "path:"+req.Name)
	if req.Name == f.badPath {
		return syscheck.Status{OK: false, Errors: []string{req.Name + ": not writable"}}
	}
	return syscheck.Status{OK: true, Fixed: f.fixPaths[req.Name]}
}

type fakeMigrator struct {
	log *calls
	err error
}

func (f *fakeMigrator) Update(_ context.Context, force bool) (*repos.MigrationResult, error) {
	*f.log = append(*f.log, fmt.Sprintf("migrate:force=%v", force))
	if f.err != nil {
		return nil, f.err
	}
	return &repos.MigrationResult{Applied: []string{"0001_init"}}, nil
}

type fakeQuery struct {
	log    *calls
	driver string
	execs  []string
	err    error
}

func (f *fakeQuery) DriverName() string { return f.driver }
func (f *fakeQuery) Exec(_ context.Context, sql string) (int64, error) {
	*f.log = append(*f.log, "sql")
	f.execs = append(f.execs, sql)
	return 0, f.err
}

type fakeSeeder struct {
	log        *calls
	roles      map[string]domain.Role
	users      map[string]*domain.User
	writes     int
	lastSeeded map[string]domain.Role
}

func newFakeSeeder(log *calls) *fakeSeeder {
	return &fakeSeeder{log: log, roles: map[string]domain.Role{}, users: map[string]*domain.User{}}
}

func (f *fakeSeeder) EnsureRole(_ context.Context, name string) (domain.Role, bool, error) {
	*f.log = append(*f.log, "role:"+name)
	if r, ok := f.roles[name]; ok {
		return r, false, nil
	}
	f.writes++
	r := domain.Role{ID: "id-" + name, Name: name, Role: name}
	f.roles[name] = r
	return r, true, nil
}

func (f *fakeSeeder) EnsureDefaultUser(_ context.Context, def services.DefaultUser, seeded map[string]domain.Role) (*domain.User, bool, error) {
	*f.log = append(*f.log, "user")
	f.lastSeeded = seeded
	if u, ok := f.users[def.Username]; ok {
		return u, false, nil
	}
	f.writes++
	u := &domain.User{ID: "u-" + def.Username, Username: def.Username}
	for _, name := range def.Roles {
		u.Roles = append(u.Roles, seeded[name])
	}
	f.users[def.Username] = u
	return u, true, nil
}

type fakeImporter struct {
	log     *calls
	failing string
	err     error
}

func (f *fakeImporter) ImportFromFile(_ context.Context, user *domain.User, path, category string, overwrite bool) ([]domain.ImportResult, error) {
	*f.log = append(*f.log, "import:"+path)
	if path == f.failing {
		if f.err != nil {
			return nil, f.err
		}
		return []domain.ImportResult{
			{ClassName: "Test", Name: "ok"},
			{ClassName: "Test", Name: "dup", Errors: true, Messages: []string{"object already exists"}},
		}, nil
	}
	return []domain.ImportResult{{ClassName: "Test", Name: path}}, nil
}

type harness struct {
	log      calls
	out      bytes.Buffer
	checker  *fakeChecker
	migrator *fakeMigrator
	query    *fakeQuery
	seeder   *fakeSeeder
	importer *fakeImporter
	setup    *Setup
}

func newHarness() *harness {
	h := &harness{}
	h.checker = &fakeChecker{log: &h.log}
	h.migrator = &fakeMigrator{log: &h.log}
	h.query = &fakeQuery{log: &h.log, driver: repos.DriverSQLite}
	h.seeder = newFakeSeeder(&h.log)
	h.importer = &fakeImporter{log: &h.log}
	h.setup = &Setup{
		Requirements: config.Requirements{
			Executables: []config.ExecutableRequirement{{Name: "r", Command: "R", VersionMin: "4.0"}, {Name: "rscript", Command: "Rscript"}},
			Paths:       []config.PathRequirement{{Name: "files", Path: "var/files"}, {Name: "logs", Path: "var/logs"}},
		},
		Roles:          domain.RoleNames,
		DefaultUser:    services.DefaultUser{Username: "admin", Password: "admin", Email: "admin@mydomain.com", Roles: []string{domain.RoleSuperAdmin}},
		StarterContent: []string{"f1", "f2", "f3", "f4", "f5"},
		PlatformSQL:    map[string]string{repos.DriverPostgres: "CREATE FUNCTION x()"},
		Checker:        h.checker,
		Migrator:       h.migrator,
		Query:          h.query,
		Seeder:         h.seeder,
		Importer:       h.importer,
		Out:            &h.out,
	}
	return h
}

func (h *harness) count(prefix string) int {
	n := 0
	for _, c := range h.log {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestRun_FullSequence(t *testing.T) {
	h := newHarness()

	res, err := h.setup.Run(context.Background(), Options{Env: "dev", Check: true, StarterContent: true})
	require.NoError(t, err)

	want := calls{"exec:r", "exec:rscript", "path:files", "path:logs", "migrate:force=true"}
	for _, r := range domain.RoleNames {
		want = append(want, "role:"+r)
	}
	want = append(want, "user", "import:f1", "import:f2", "import:f3", "import:f4", "import:f5")
	assert.Equal(t, want, h.log)

	assert.Equal(t, domain.RoleNames, res.RolesCreated)
	assert.True(t, res.UserCreated)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4", "f5"}, res.ImportedFiles)

	out := h.out.String()
	assert.Contains(t, out, "concerto setup (dev)\n")
	assert.Contains(t, out, "checking if R (version >= 4.0) is available in this system...")
	assert.Contains(t, out, "database up to date\n")
	assert.Contains(t, out, "role_test created\n")
	assert.Contains(t, out, "default user created\n")
	assert.Contains(t, out, "imported f5 successfully\n")
	assert.Contains(t, out, "starter content importing finished\n")
}

func TestRun_OptionalStepsSkipped(t *testing.T) {
	h := newHarness()

	_, err := h.setup.Run(context.Background(), Options{Env: "prod"})
	require.NoError(t, err)

	assert.Zero(t, h.count("exec:"))
	assert.Zero(t, h.count("path:"))
	assert.Zero(t, h.count("import:"))
	assert.Equal(t, 1, h.count("migrate:"))
}

func TestRun_UnmetExecutableAbortsBeforeSchema(t *testing.T) {
	h := newHarness()
	h.checker.badExec = "r"

	_, err := h.setup.Run(context.Background(), Options{Check: true, StarterContent: true})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "4.0 or newer required")

	assert.Equal(t, calls{"exec:r"}, h.log)
	assert.Zero(t, h.seeder.writes)
}

func TestRun_UnfixablePathAborts(t *testing.T) {
	h := newHarness()
	h.checker.badPath = "logs"

	_, err := h.setup.Run(context.Background(), Options{Check: true})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "logs: not writable")
	assert.Zero(t, h.count("migrate:"))
}

func TestRun_FixedPathIsNotFailure(t *testing.T) {
	h := newHarness()
	h.checker.fixPaths = map[string]bool{"files": true}

	_, err := h.setup.Run(context.Background(), Options{Check: true})
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "fixed a problem discovered with files directory (var/files)")
}

func TestRun_MigrationFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.migrator.err = errors.New("syntax error")

	_, err := h.setup.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Zero(t, h.count("role:"))
	assert.Zero(t, h.count("sql"))
}

func TestRun_PlatformCustomization(t *testing.T) {
	t.Run("non-target engine runs no SQL", func(t *testing.T) {
		h := newHarness()
		res, err := h.setup.Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.Empty(t, h.query.execs)
		assert.False(t, res.Customized)
	})

	t.Run("postgres runs the bundled script after migrations", func(t *testing.T) {
		h := newHarness()
		h.query.driver = repos.DriverPostgres
		res, err := h.setup.Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"CREATE FUNCTION x()"}, h.query.execs)
		assert.True(t, res.Customized)
		assert.Equal(t, "migrate:force=true", h.log[0])
		assert.Equal(t, "sql", h.log[1])
	})

	t.Run("failure is fatal", func(t *testing.T) {
		h := newHarness()
		h.query.driver = repos.DriverPostgres
		h.query.err = errors.New("permission denied")
		_, err := h.setup.Run(context.Background(), Options{})
		require.Error(t, err)
		assert.Zero(t, h.count("role:"))
	})
}

func TestRun_SeedingIsIdempotent(t *testing.T) {
	h := newHarness()

	_, err := h.setup.Run(context.Background(), Options{})
	require.NoError(t, err)
	writes := h.seeder.writes
	assert.Equal(t, len(domain.RoleNames)+1, writes)

	h.out.Reset()
	res, err := h.setup.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, writes, h.seeder.writes)
	assert.Empty(t, res.RolesCreated)
	assert.Equal(t, domain.RoleNames, res.RolesFound)
	assert.False(t, res.UserCreated)
	assert.Contains(t, h.out.String(), "default user found\n")
	assert.Contains(t, h.out.String(), "ROLE_SUPER_ADMIN found\n")
	assert.Len(t, h.seeder.roles, len(domain.RoleNames))
	assert.Len(t, h.seeder.users, 1)
}

func TestRun_DefaultUserGetsConfiguredRoles(t *testing.T) {
	h := newHarness()
	// super admin is not the last role processed
	h.setup.Roles = []string{domain.RoleSuperAdmin, domain.RoleTest, domain.RoleFile}

	res, err := h.setup.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, res.User.Roles, 1)
	assert.Equal(t, domain.RoleSuperAdmin, res.User.Roles[0].Name)
	assert.Len(t, h.seeder.lastSeeded, 3)
}

func TestRun_ImportStopsAtFirstFailingFile(t *testing.T) {
	h := newHarness()
	h.importer.failing = "f3"

	res, err := h.setup.Run(context.Background(), Options{StarterContent: true})
	require.ErrorIs(t, err, ErrImportFailed)
	assert.Contains(t, err.Error(), "f3")
	assert.Contains(t, err.Error(), "object already exists")

	assert.Equal(t, 3, h.count("import:"))
	assert.NotContains(t, h.log, "import:f4")
	assert.NotContains(t, h.log, "import:f5")
	require.NotNil(t, res)
	assert.Equal(t, []string{"f1", "f2"}, res.ImportedFiles)

	out := h.out.String()
	assert.Contains(t, out, "importing f3 failed!\n")
	assert.Contains(t, out, "starter content might be already present")
	assert.NotContains(t, out, "starter content importing finished")
}

func TestRun_ImportReadErrorStops(t *testing.T) {
	h := newHarness()
	h.importer.failing = "f1"
	h.importer.err = errors.New("decoding f1: unexpected EOF")

	_, err := h.setup.Run(context.Background(), Options{StarterContent: true})
	require.ErrorIs(t, err, ErrImportFailed)
	assert.Equal(t, 1, h.count("import:"))
}
