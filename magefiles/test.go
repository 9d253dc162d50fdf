//go:build mage

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups test targets (all, unit, cover, smoke).
type Test mg.Namespace

// All runs every package's tests with the race detector.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "-count=1", "./...")
}

// Unit runs every package's tests without the race detector.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "./...")
}

// Cover runs all tests with a coverage profile and prints the summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

const smokeDeclaration = `L1,L2,L3,L4,L5,L6,L7,L8,L9
Intake,,,,,,,,
,Name/re:.+/Full name,,,,,,,
,Contact,,,,,,,
,,Email/selector:RADIO,,,,,,
,,Phone/selector:RADIO,,,,,,
`

// Smoke builds the binary and drives it through init, compile, save and
// get in a scratch directory.
func (Test) Smoke() error {
	mg.Deps(Build)
	bin, err := filepath.Abs(filepath.Join(binaryDir, binaryName))
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "sheetform-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	decl := filepath.Join(dir, "intake.csv")
	if err := os.WriteFile(decl, []byte(smokeDeclaration), 0o644); err != nil {
		return err
	}
	answers := filepath.Join(dir, "answers.json")
	if err := os.WriteFile(answers, []byte(`{"name":"Ann","contact":{"email":"ann@example.com"}}`), 0o644); err != nil {
		return err
	}

	base := []string{"--config-dir", filepath.Join(dir, "config"), "--data-dir", filepath.Join(dir, "data")}
	run := func(args ...string) (string, error) {
		return sh.Output(bin, append(base, args...)...)
	}

	if _, err := run("init", decl); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	html := filepath.Join(dir, "intake.html")
	if _, err := run("compile", "--from-table", "structure", "--out", html); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	out, err := run("save", answers)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	var res struct {
		OK bool `json:"ok"`
		ID any  `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil || !res.OK {
		return fmt.Errorf("save returned %q", out)
	}
	got, err := run("get", fmt.Sprint(res.ID))
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if !strings.Contains(got, "ann@example.com") {
		return fmt.Errorf("get returned %q", got)
	}
	fmt.Println("smoke test passed")
	return nil
}
