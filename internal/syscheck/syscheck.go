// Package syscheck verifies host prerequisites: required executables with a
// minimum version, and directories with the permissions the panel needs.
package syscheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/sys/unix"

	"concerto/internal/config"
)

// Status is the outcome of one check. Fixed is set when a problem was found
// and repaired; that still counts as OK.
type Status struct {
	OK     bool
	Errors []string
	Fixed  bool
}

func (s *Status) fail(format string, args ...any) {
	s.OK = false
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// ErrorsString joins the errors into one message.
func (s Status) ErrorsString() string { return strings.Join(s.Errors, "; ") }

// Runner executes command with args and returns combined output.
type Runner func(ctx context.Context, command string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, command string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, command, args...).CombinedOutput()
}

type Checker struct {
	LookPath func(string) (string, error)
	Run      Runner
}

func NewChecker() *Checker {
	return &Checker{LookPath: exec.LookPath, Run: execRunner}
}

var versionRe = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// CheckExecutable verifies req.Command is on PATH and, when VersionMin is
// set, that it reports at least that version.
func (c *Checker) CheckExecutable(ctx context.Context, req config.ExecutableRequirement) Status {
	st := Status{OK: true}
	bin, err := c.LookPath(req.Command)
	if err != nil {
		st.fail("%s: executable %q not found", req.Name, req.Command)
		return st
	}
	if req.VersionMin == "" {
		return st
	}

	args := req.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, err := c.Run(ctx, bin, args...)
	if err != nil {
		st.fail("%s: running %s %s: %v", req.Name, req.Command, strings.Join(args, " "), err)
		return st
	}
	found := versionRe.FindString(string(out))
	if found == "" {
		st.fail("%s: could not determine version of %s", req.Name, req.Command)
		return st
	}
	if less, err := versionLess(found, req.VersionMin); err != nil {
		st.fail("%s: %v", req.Name, err)
	} else if less {
		st.fail("%s: %s version %s found, %s or newer required", req.Name, req.Command, found, req.VersionMin)
	}
	return st
}

func versionLess(have, want string) (bool, error) {
	h, w := "v"+have, "v"+strings.TrimPrefix(want, "v")
	if !semver.IsValid(h) {
		return false, fmt.Errorf("invalid version %q", have)
	}
	if !semver.IsValid(w) {
		return false, fmt.Errorf("invalid minimum version %q", want)
	}
	return semver.Compare(h, w) < 0, nil
}

// Nicename is how a path requirement is shown to the operator.
func Nicename(req config.PathRequirement) string {
	return fmt.Sprintf("%s directory (%s)", req.Name, req.Path)
}

// CheckPath verifies req.Path is a directory with the required mode and
// access. A missing directory is created and a wrong mode is corrected when
// possible; both are reported through Fixed.
func (c *Checker) CheckPath(req config.PathRequirement) Status {
	st := Status{OK: true}
	nice := Nicename(req)

	var mode fs.FileMode
	if req.Mode != "" {
		m, err := strconv.ParseUint(req.Mode, 8, 32)
		if err != nil {
			st.fail("%s: invalid mode %q", nice, req.Mode)
			return st
		}
		mode = fs.FileMode(m).Perm()
	}

	info, err := os.Stat(req.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && req.Create:
		perm := mode
		if perm == 0 {
			perm = 0o755
		}
		if err := os.MkdirAll(req.Path, perm); err != nil {
			st.fail("%s: does not exist and could not be created: %v", nice, err)
			return st
		}
		st.Fixed = true
		if info, err = os.Stat(req.Path); err != nil {
			st.fail("%s: %v", nice, err)
			return st
		}
	case errors.Is(err, fs.ErrNotExist):
		st.fail("%s: does not exist", nice)
		return st
	case err != nil:
		st.fail("%s: %v", nice, err)
		return st
	}

	if !info.IsDir() {
		st.fail("%s: not a directory", nice)
		return st
	}
	if mode != 0 && info.Mode().Perm() != mode {
		if err := os.Chmod(req.Path, mode); err != nil {
			st.fail("%s: mode is %04o, %04o required: %v", nice, info.Mode().Perm(), mode, err)
			return st
		}
		st.Fixed = true
	}
	if err := unix.Access(req.Path, unix.R_OK|unix.X_OK); err != nil {
		st.fail("%s: not readable: %v", nice, err)
	}
	if req.Writable {
		if err := unix.Access(req.Path, unix.W_OK); err != nil {
			st.fail("%s: not writable: %v", nice, err)
		}
	}
	return st
}
