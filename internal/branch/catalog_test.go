package branch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/intake/internal/core"
)

var _ core.BranchSource = (*Catalog)(nil)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "branches.yaml", `
branches:
  - id: cse
    branchName: Computer Engineering
    academicYears: [SE, TE, BE]
    divisions:
      SE: [A, B]
      TE: [A]
    workingDays: [Monday, Tuesday, Wednesday]
    slotsPerDay: 8
    startTime: "09:00"
    sharedLabs:
      - name: Lab 1
        capacity: 30
  - branchName: Information Technology
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cse, ok := c.Branch("cse")
	if !ok {
		t.Fatal("cse not found")
	}
	if !cse.Ready() {
		t.Error("cse should be ready")
	}
	if cse.TotalDivisions() != 3 {
		t.Errorf("TotalDivisions = %d, want 3", cse.TotalDivisions())
	}
	if len(cse.SharedLabs) != 1 || cse.SharedLabs[0].Capacity != 30 {
		t.Errorf("SharedLabs = %+v", cse.SharedLabs)
	}

	it, ok := c.Branch("information-technology")
	if !ok {
		t.Fatalf("slugged id missing, have %v", c.IDs())
	}
	if it.Ready() {
		t.Error("branch without years should not be ready")
	}
	if got := c.Branches(); len(got) != 2 || got[0].ID != "cse" {
		t.Errorf("Branches order = %+v", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "branches.json", `{"branches":[{"id":"mech","branchName":"Mechanical","academicYears":["SE"],"workingDays":["Monday"]}]}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b, ok := c.Branch("mech"); !ok || !b.Ready() {
		t.Errorf("mech = %+v, %v", b, ok)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "branches: [\n"},
		{"duplicate ids", "branches:\n  - id: a\n  - id: a\n"},
		{"no id or name", "branches:\n  - academicYears: [SE]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "b.yaml", tt.content)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Branches()) != 0 {
		t.Errorf("Branches = %v, want none", c.Branches())
	}
}

func TestReload_KeepsOldOnError(t *testing.T) {
	path := writeFile(t, "b.yaml", "branches:\n  - id: a\n")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(path, []byte("branches:\n  - id: b\n  - id: b\n"), 0o600)
	if err := c.Reload(); err == nil {
		t.Error("Reload accepted duplicate ids")
	}
	if _, ok := c.Branch("a"); !ok {
		t.Error("Reload dropped the previous branches on error")
	}

	os.WriteFile(path, []byte("branches:\n  - id: b\n"), 0o600)
	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Branch("b"); !ok {
		t.Error("Reload did not pick up the new branch")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Computer Engineering": "computer-engineering",
		"  E&TC  (2024) ":      "e-tc-2024",
		"":                     "",
		"---":                  "",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
