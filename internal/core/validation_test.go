package core

import (
	"fmt"
	"reflect"
	"testing"
)

func kinds(findings []Finding) []FindingKind {
	out := make([]FindingKind, len(findings))
	for i, f := range findings {
		out[i] = f.Kind
	}
	return out
}

func TestValidate_UnmappedSubjectOnly(t *testing.T) {
	snap := Snapshot{
		Teachers: []Teacher{{ID: "a", Name: "A"}},
		Subjects: []Subject{{ID: "x", Name: "X", Year: "SE"}},
	}

	r := Validate(snap)

	if r.Valid {
		t.Error("Valid = true, want false")
	}
	if len(r.Errors) != 1 || r.Errors[0].Kind != KindUnmappedSubject {
		t.Fatalf("Errors = %v, want exactly [UNMAPPED_SUBJECT]", kinds(r.Errors))
	}
	if r.Errors[0].Value != "X" {
		t.Errorf("error value = %q, want %q", r.Errors[0].Value, "X")
	}
	if !r.Has(KindUnmappedTeacher) {
		t.Error("expected UNMAPPED_TEACHER warning")
	}
}

func TestValidate_MappedIsClean(t *testing.T) {
	snap := Snapshot{
		Teachers: []Teacher{{ID: "a", Name: "A"}},
		Subjects: []Subject{{ID: "x", Name: "X", Year: "SE", WeeklyLectures: IntPtr(3)}},
		Mappings: []Mapping{{TeacherName: "A", SubjectName: "X", SubjectYear: "SE"}},
	}

	r := Validate(snap)

	if !r.Valid || len(r.Errors) != 0 {
		t.Errorf("Errors = %v, want none", kinds(r.Errors))
	}
	if len(r.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", kinds(r.Warnings))
	}
}

func TestValidate_MappedWithoutWeeklyLectures(t *testing.T) {
	snap := Snapshot{
		Teachers: []Teacher{{Name: "A"}},
		Subjects: []Subject{{Name: "X", Year: "SE"}},
		Mappings: []Mapping{{TeacherName: "A", SubjectName: "X", SubjectYear: "SE"}},
	}

	r := Validate(snap)

	if !r.Valid {
		t.Errorf("Errors = %v, want none", kinds(r.Errors))
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Kind != KindMissingOptional {
		t.Errorf("Warnings = %v, want [MISSING_OPTIONAL]", kinds(r.Warnings))
	}
}

func TestValidate_DuplicateTeacher(t *testing.T) {
	snap := Snapshot{
		Teachers: []Teacher{{Name: " a "}, {Name: "A"}},
		Subjects: []Subject{{Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}},
		Mappings: []Mapping{{TeacherName: "a", SubjectName: "X"}},
	}

	r := Validate(snap)

	if r.Count(KindDuplicate) != 1 {
		t.Fatalf("DUPLICATE count = %d, want 1", r.Count(KindDuplicate))
	}
	for _, f := range r.Errors {
		if f.Kind == KindDuplicate && (f.Index == nil || *f.Index != 1) {
			t.Errorf("DUPLICATE reported on index %v, want 1", f.Index)
		}
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		wantField string
	}{
		{
			name: "teacher id",
			snap: Snapshot{
				Teachers: []Teacher{{ID: "t1", Name: "Asha"}, {ID: " t1 ", Name: "Ben"}},
				Subjects: []Subject{{ID: "s1", Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}},
				Mappings: []Mapping{{TeacherID: "t1", SubjectID: "s1"}},
			},
			wantField: "teachers[1].id",
		},
		{
			name: "subject id",
			snap: Snapshot{
				Teachers: []Teacher{{ID: "t1", Name: "Asha"}},
				Subjects: []Subject{
					{ID: "s1", Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)},
					{ID: "s1", Name: "Y", Year: "TE", WeeklyLectures: IntPtr(2)},
				},
				Mappings: []Mapping{{TeacherID: "t1", SubjectID: "s1"}, {TeacherID: "t1", SubjectName: "Y", SubjectYear: "TE"}},
			},
			wantField: "subjects[1].id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.snap)
			if r.Valid {
				t.Fatal("duplicate id accepted")
			}
			if r.Count(KindDuplicate) != 1 {
				t.Fatalf("DUPLICATE count = %d, want 1: %v", r.Count(KindDuplicate), kinds(r.Errors))
			}
			for _, f := range r.Errors {
				if f.Kind == KindDuplicate && (f.Field != tt.wantField || f.Index == nil || *f.Index != 1) {
					t.Errorf("DUPLICATE on %s index %v, want %s index 1", f.Field, f.Index, tt.wantField)
				}
			}
		})
	}
}

func TestValidate_WorkloadBothLevels(t *testing.T) {
	snap := Snapshot{Teachers: []Teacher{{ID: "t", Name: "Busy", MaxLecturesPerDay: IntPtr(4)}}}
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("s%d", i)
		snap.Subjects = append(snap.Subjects, Subject{ID: id, Name: "Subject " + id, Year: "SE", WeeklyLectures: IntPtr(3)})
		snap.Mappings = append(snap.Mappings, Mapping{TeacherID: "t", SubjectID: id})
	}

	r := Validate(snap)

	if !r.Has(KindHighWorkload) {
		t.Error("missing HIGH_WORKLOAD")
	}
	if !r.Has(KindExtremeWorkload) {
		t.Error("missing EXTREME_WORKLOAD")
	}
	if !r.Valid {
		t.Errorf("workload findings must not block: errors = %v", kinds(r.Errors))
	}
}

func TestValidate_WorkloadThresholds(t *testing.T) {
	tests := []struct {
		name        string
		limit       *int
		assigned    int
		wantHigh    bool
		wantExtreme bool
	}{
		{"default limit reached", nil, 6, false, false},
		{"default limit exceeded", nil, 7, true, false},
		{"at extreme", nil, 8, true, false},
		{"past extreme", nil, 9, true, true},
		{"generous limit past extreme", IntPtr(10), 9, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Teachers: []Teacher{{ID: "t", Name: "T", MaxLecturesPerDay: tt.limit}}}
			for i := 0; i < tt.assigned; i++ {
				id := fmt.Sprintf("s%d", i)
				snap.Subjects = append(snap.Subjects, Subject{ID: id, Name: id, Year: "SE", WeeklyLectures: IntPtr(2)})
				snap.Mappings = append(snap.Mappings, Mapping{TeacherID: "t", SubjectID: id})
			}
			r := Validate(snap)
			if got := r.Has(KindHighWorkload); got != tt.wantHigh {
				t.Errorf("HIGH_WORKLOAD = %v, want %v", got, tt.wantHigh)
			}
			if got := r.Has(KindExtremeWorkload); got != tt.wantExtreme {
				t.Errorf("EXTREME_WORKLOAD = %v, want %v", got, tt.wantExtreme)
			}
		})
	}
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name     string
		teacher  Teacher
		subject  Subject
		wantKind FindingKind
		severity Severity
	}{
		{"blank teacher name", Teacher{Name: "  "}, Subject{Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}, KindMissingField, SeverityError},
		{"blank subject name", Teacher{Name: "A"}, Subject{Name: "", Year: "SE", WeeklyLectures: IntPtr(2)}, KindMissingField, SeverityError},
		{"missing year", Teacher{Name: "A"}, Subject{Name: "X", WeeklyLectures: IntPtr(2)}, KindMissingField, SeverityError},
		{"lectures per day too high", Teacher{Name: "A", MaxLecturesPerDay: IntPtr(11)}, Subject{Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}, KindUnusualValue, SeverityWarning},
		{"lectures per day zero", Teacher{Name: "A", MaxLecturesPerDay: IntPtr(0)}, Subject{Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}, KindUnusualValue, SeverityWarning},
		{"weekly lectures too high", Teacher{Name: "A"}, Subject{Name: "X", Year: "SE", WeeklyLectures: IntPtr(21)}, KindUnusualValue, SeverityWarning},
		{"practical with one lecture", Teacher{Name: "A"}, Subject{Name: "X", Year: "SE", WeeklyLectures: IntPtr(1), IsPractical: true}, KindPracticalWarning, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(Snapshot{Teachers: []Teacher{tt.teacher}, Subjects: []Subject{tt.subject}})
			list := r.Warnings
			if tt.severity == SeverityError {
				list = r.Errors
			}
			found := false
			for _, f := range list {
				if f.Kind == tt.wantKind {
					found = true
					if f.Severity != tt.severity {
						t.Errorf("severity = %s, want %s", f.Severity, tt.severity)
					}
				}
			}
			if !found {
				t.Errorf("no %s %s in errors=%v warnings=%v", tt.severity, tt.wantKind, kinds(r.Errors), kinds(r.Warnings))
			}
		})
	}
}

func TestValidate_InvalidReferencePerSide(t *testing.T) {
	snap := validSnapshot()
	snap.Mappings = append(snap.Mappings,
		Mapping{TeacherID: "ghost", SubjectID: "s1"},
		Mapping{TeacherID: "ghost", SubjectName: "Nothing", SubjectYear: "SE"},
	)

	r := Validate(snap)

	if got := r.Count(KindInvalidReference); got != 3 {
		t.Errorf("INVALID_REFERENCE count = %d, want 3", got)
	}
	fields := map[string]bool{}
	for _, f := range r.Errors {
		fields[f.Field] = true
	}
	for _, want := range []string{"teacherSubjectMap[1].teacherId", "teacherSubjectMap[2].teacherId", "teacherSubjectMap[2].subjectId"} {
		if !fields[want] {
			t.Errorf("missing finding for %s", want)
		}
	}
}

func TestValidate_EmptyCollections(t *testing.T) {
	r := Validate(Snapshot{})
	if got := r.Count(KindEmptyCollection); got != 2 {
		t.Errorf("EMPTY_COLLECTION count = %d, want 2", got)
	}
	if r.Valid {
		t.Error("empty snapshot reported valid")
	}
}

func TestValidateForBranch_UnknownYear(t *testing.T) {
	snap := validSnapshot()
	snap.Subjects = append(snap.Subjects, Subject{ID: "s2", Name: "Thesis", Year: "ME", WeeklyLectures: IntPtr(2)})
	snap.Mappings = append(snap.Mappings, Mapping{TeacherID: "t1", SubjectID: "s2"})
	branch := readyBranch()

	r := ValidateForBranch(snap, &branch)
	if got := r.Count(KindUnknownYear); got != 1 {
		t.Errorf("UNKNOWN_YEAR count = %d, want 1", got)
	}
	if !r.Valid {
		t.Errorf("unknown year must not block: errors = %v", kinds(r.Errors))
	}

	if Validate(snap).Has(KindUnknownYear) {
		t.Error("Validate without a branch reported UNKNOWN_YEAR")
	}
}

func TestValidate_Properties(t *testing.T) {
	snaps := []Snapshot{
		{},
		validSnapshot(),
		{Teachers: []Teacher{{Name: "A"}, {Name: "a"}}, Subjects: []Subject{{Name: "X"}}},
		{Teachers: []Teacher{{Name: "A"}}, Subjects: []Subject{{Name: "X", Year: "SE"}, {Name: "Y", Year: "SE"}},
			Mappings: []Mapping{{TeacherName: "A", SubjectName: "X"}, {TeacherName: "B", SubjectName: "Y"}}},
	}
	for i, snap := range snaps {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			before := snap.Clone()
			first := Validate(snap)
			second := Validate(snap)

			if !reflect.DeepEqual(first, second) {
				t.Error("Validate is not deterministic")
			}
			if !reflect.DeepEqual(snap.Clone(), before) {
				t.Error("Validate modified its input")
			}
			if first.Valid != (len(first.Errors) == 0) {
				t.Errorf("Valid = %v with %d errors", first.Valid, len(first.Errors))
			}
			for _, f := range first.Errors {
				if f.Kind == KindUnmappedTeacher {
					t.Error("UNMAPPED_TEACHER reported as an error")
				}
			}
			for _, f := range first.Warnings {
				if f.Kind == KindUnmappedSubject {
					t.Error("UNMAPPED_SUBJECT reported as a warning")
				}
			}
			if first.Errors == nil || first.Warnings == nil {
				t.Error("Errors and Warnings must be non-nil")
			}
		})
	}
}
