package core

import (
	"reflect"
	"testing"
)

func TestMerge_FirstWriteWins(t *testing.T) {
	existing := Snapshot{Teachers: []Teacher{{ID: "t1", Name: "A", MaxLecturesPerDay: IntPtr(3)}}}
	batch := Batch{Target: CollectionTeachers, Teachers: []Teacher{
		{ID: "t2", Name: " a ", MaxLecturesPerDay: IntPtr(9)},
		{ID: "t3", Name: "B"},
		{ID: "t4", Name: "b"},
	}}

	got, stats := MergeWithStats(existing, batch)

	if len(got.Teachers) != 2 {
		t.Fatalf("len(Teachers) = %d, want 2", len(got.Teachers))
	}
	if got.Teachers[0].ID != "t1" || *got.Teachers[0].MaxLecturesPerDay != 3 {
		t.Errorf("existing teacher was replaced: %+v", got.Teachers[0])
	}
	if got.Teachers[1].ID != "t3" {
		t.Errorf("second teacher ID = %q, want t3", got.Teachers[1].ID)
	}
	if stats.Added != 1 || stats.Duplicates != 2 {
		t.Errorf("stats = %+v, want added=1 duplicates=2", stats)
	}
}

func TestMerge_AcrossBatches(t *testing.T) {
	first := Merge(Snapshot{}, teacherBatch(" a "))
	second := Merge(first, teacherBatch("A"))

	if len(second.Teachers) != 1 {
		t.Fatalf("len(Teachers) = %d, want 1", len(second.Teachers))
	}
	if second.Teachers[0].Name != "a" {
		t.Errorf("kept name = %q, want first-written %q", second.Teachers[0].Name, "a")
	}
}

func TestMerge_Subjects(t *testing.T) {
	batch := Batch{Target: CollectionSubjects, Subjects: []Subject{
		{Name: "DSA", Year: "SE"},
		{Name: "dsa", Year: "se"},
		{Name: "DSA", Year: "TE"},
		{Name: "  ", Year: "SE"},
	}}

	got, stats := MergeWithStats(Snapshot{}, batch)

	if len(got.Subjects) != 2 {
		t.Fatalf("len(Subjects) = %d, want 2", len(got.Subjects))
	}
	if stats.Filtered != 1 || stats.Duplicates != 1 || stats.Added != 2 {
		t.Errorf("stats = %+v, want added=2 duplicates=1 filtered=1", stats)
	}
}

func TestMerge_Mappings(t *testing.T) {
	existing := Snapshot{Mappings: []Mapping{{TeacherID: "t1", SubjectID: "s1"}}}
	batch := Batch{Target: CollectionMapping, Mappings: []Mapping{
		{TeacherID: "t1", SubjectID: "s1"},
		{TeacherID: "t1", SubjectID: "s2"},
		{TeacherName: "A"},
	}}

	got, stats := MergeWithStats(existing, batch)

	if len(got.Mappings) != 2 {
		t.Errorf("len(Mappings) = %d, want 2", len(got.Mappings))
	}
	if stats.Duplicates != 1 || stats.Filtered != 1 {
		t.Errorf("stats = %+v, want duplicates=1 filtered=1", stats)
	}
}

func TestMerge_OnlyReadsTarget(t *testing.T) {
	batch := Batch{
		Target:   CollectionSubjects,
		Teachers: []Teacher{{Name: "ignored"}},
		Subjects: []Subject{{Name: "DSA", Year: "SE"}},
	}
	got := Merge(Snapshot{}, batch)
	if len(got.Teachers) != 0 {
		t.Errorf("teachers merged from a subjects batch: %+v", got.Teachers)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	batches := []Batch{
		teacherBatch("A", "B", "a"),
		{Target: CollectionSubjects, Subjects: []Subject{{Name: "X", Year: "SE"}, {Name: "Y", Year: "TE"}}},
		{Target: CollectionMapping, Mappings: []Mapping{{TeacherName: "A", SubjectName: "X", SubjectYear: "SE"}}},
	}
	base := validSnapshot()
	for _, b := range batches {
		once := Merge(base, b)
		twice := Merge(once, b)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Merge(Merge(s, %s)) != Merge(s, %s)", b.Target, b.Target)
		}
	}
}

func TestMerge_DoesNotMutateExisting(t *testing.T) {
	existing := validSnapshot()
	before := existing.Clone()

	_ = Merge(existing, teacherBatch("New Teacher"))
	_ = Merge(existing, Batch{Target: CollectionMapping, Mappings: []Mapping{{TeacherID: "t9", SubjectID: "s9"}}})

	if !reflect.DeepEqual(existing, before) {
		t.Errorf("existing snapshot was modified:\n got %+v\nwant %+v", existing, before)
	}
}
