package core

// aggregate.go merges candidate batches from any input channel into a snapshot.
//
// Dedup policy is first-write-wins: a teacher or subject whose identity is
// already present (in the existing snapshot or earlier in the same batch) is
// dropped. Later duplicates are absorbed whole; fields are never merged.
// Mappings are deduplicated only on exact reference-pair equality.
//
// Records without a usable name are filtered here but never reported. The
// Validator is the only component that reports malformed data.

import (
	"fmt"
	"strings"
)

// Collection names the snapshot collection a batch targets.
type Collection string

const (
	CollectionTeachers Collection = "teachers"
	CollectionSubjects Collection = "subjects"
	CollectionMapping  Collection = "mapping"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionTeachers, CollectionSubjects, CollectionMapping:
		return true
	}
	return false
}

// Channel identifies where candidate records came from.
type Channel string

const (
	ChannelFile     Channel = "file"
	ChannelBulkText Channel = "bulk_text"
	ChannelPrompt   Channel = "prompt"
	ChannelManual   Channel = "manual"
)

// Batch is a set of already-extracted candidate records for one collection.
// Only the slice matching Target is read.
type Batch struct {
	Target   Collection `json:"target"`
	Channel  Channel    `json:"channel"`
	FileName string     `json:"fileName,omitempty"`
	Teachers []Teacher  `json:"teachers,omitempty"`
	Subjects []Subject  `json:"subjects,omitempty"`
	Mappings []Mapping  `json:"mappings,omitempty"`
}

// Len returns the number of candidate records for the batch's target.
func (b Batch) Len() int {
	switch b.Target {
	case CollectionTeachers:
		return len(b.Teachers)
	case CollectionSubjects:
		return len(b.Subjects)
	case CollectionMapping:
		return len(b.Mappings)
	}
	return 0
}

// MergeStats counts what happened to a batch during a merge.
type MergeStats struct {
	Target     Collection `json:"target"`
	Received   int        `json:"received"`
	Added      int        `json:"added"`
	Duplicates int        `json:"duplicates"`
	Filtered   int        `json:"filtered"` // missing names or references
}

func (m MergeStats) String() string {
	return fmt.Sprintf("%s: received=%d added=%d duplicates=%d filtered=%d",
		m.Target, m.Received, m.Added, m.Duplicates, m.Filtered)
}

// Merge returns a new snapshot containing existing plus the new records of
// batch. existing is never modified.
func Merge(existing Snapshot, batch Batch) Snapshot {
	out, _ := MergeWithStats(existing, batch)
	return out
}

// MergeWithStats is Merge plus a per-batch summary.
func MergeWithStats(existing Snapshot, batch Batch) (Snapshot, MergeStats) {
	out := existing.Clone()
	stats := MergeStats{Target: batch.Target, Received: batch.Len()}

	switch batch.Target {
	case CollectionTeachers:
		seen := make(map[string]bool, len(out.Teachers)+len(batch.Teachers))
		for _, t := range out.Teachers {
			seen[TeacherKey(t)] = true
		}
		for _, t := range batch.Teachers {
			key := TeacherKey(t)
			if key == "" {
				stats.Filtered++
				continue
			}
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
			t.Name = strings.TrimSpace(t.Name)
			t.MaxLecturesPerDay = cloneInt(t.MaxLecturesPerDay)
			out.Teachers = append(out.Teachers, t)
			stats.Added++
		}

	case CollectionSubjects:
		seen := make(map[string]bool, len(out.Subjects)+len(batch.Subjects))
		for _, s := range out.Subjects {
			seen[SubjectKey(s)] = true
		}
		for _, s := range batch.Subjects {
			if NormalizeName(s.Name) == "" {
				stats.Filtered++
				continue
			}
			key := SubjectKey(s)
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
			s.Name = strings.TrimSpace(s.Name)
			s.Year = strings.TrimSpace(s.Year)
			s.WeeklyLectures = cloneInt(s.WeeklyLectures)
			s.SessionLength = cloneInt(s.SessionLength)
			out.Subjects = append(out.Subjects, s)
			stats.Added++
		}

	case CollectionMapping:
		seen := make(map[string]bool, len(out.Mappings)+len(batch.Mappings))
		for _, m := range out.Mappings {
			if key := MappingKey(m); key != "" {
				seen[key] = true
			}
		}
		for _, m := range batch.Mappings {
			key := MappingKey(m)
			if key == "" {
				stats.Filtered++
				continue
			}
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
			out.Mappings = append(out.Mappings, m)
			stats.Added++
		}
	}

	return out, stats
}
