package core

import "strings"

// Lab is a shared practical room.
type Lab struct {
	Name     string `json:"name" yaml:"name"`
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// Branch is the academic structure a dataset is collected for. It is
// produced by the branch setup flow and is read-only here.
type Branch struct {
	ID            string              `json:"id" yaml:"id"`
	Name          string              `json:"branchName" yaml:"branchName"`
	AcademicYears []string            `json:"academicYears" yaml:"academicYears"`
	Divisions     map[string][]string `json:"divisions" yaml:"divisions"`
	WorkingDays   []string            `json:"workingDays" yaml:"workingDays"`
	SlotsPerDay   int                 `json:"slotsPerDay,omitempty" yaml:"slotsPerDay,omitempty"`
	StartTime     string              `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	EndTime       string              `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	Rooms         []string            `json:"rooms,omitempty" yaml:"rooms,omitempty"`
	SharedLabs    []Lab               `json:"sharedLabs,omitempty" yaml:"sharedLabs,omitempty"`
}

// Ready reports whether the branch setup is complete enough to collect data:
// at least one academic year and one working day.
func (b *Branch) Ready() bool {
	if b == nil {
		return false
	}
	return hasNonBlank(b.AcademicYears) && hasNonBlank(b.WorkingDays)
}

// TotalDivisions counts divisions across all years.
func (b *Branch) TotalDivisions() int {
	n := 0
	for _, divs := range b.Divisions {
		n += len(divs)
	}
	return n
}

func hasNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// BranchSource looks up branch configuration by ID.
type BranchSource interface {
	Branch(id string) (*Branch, bool)
	Branches() []Branch
}
