package core

import (
	"errors"
	"testing"
)

func always() bool { return true }

// extractedController returns a controller holding validSnapshot in extracted.
func extractedController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(always)
	snap := validSnapshot()
	for _, b := range []Batch{
		{Target: CollectionTeachers, Teachers: snap.Teachers},
		{Target: CollectionSubjects, Subjects: snap.Subjects},
		{Target: CollectionMapping, Mappings: snap.Mappings},
	} {
		if o, _ := c.Merge(b); !o.Accepted {
			t.Fatalf("Merge(%s) rejected: %s", b.Target, o.Reason)
		}
	}
	if c.Stage() != StageExtracted {
		t.Fatalf("Stage = %s, want extracted", c.Stage())
	}
	return c
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		from Stage
		trig Trigger
		to   Stage
		ok   bool
	}{
		{StageIdle, TriggerMerge, StageExtracted, true},
		{StageExtracted, TriggerMerge, StageExtracted, true},
		{StageExtracted, TriggerEdit, StageEditing, true},
		{StageEditing, TriggerCancel, StageExtracted, true},
		{StageEditing, TriggerSave, StageExtracted, true},
		{StageExtracted, TriggerConfirm, StageConfirmed, true},
		{StageConfirmed, TriggerEdit, StageEditing, true},
		{StageConfirmed, TriggerCommit, StageAdded, true},
		{StageIdle, TriggerConfirm, "", false},
		{StageEditing, TriggerConfirm, "", false},
		{StageEditing, TriggerMerge, "", false},
		{StageAdded, TriggerEdit, "", false},
		{StageExtracted, TriggerCommit, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trig), func(t *testing.T) {
			to, ok := NextStage(tt.from, tt.trig)
			if ok != tt.ok || (ok && to != tt.to) {
				t.Errorf("NextStage(%s, %s) = (%s, %v), want (%s, %v)", tt.from, tt.trig, to, ok, tt.to, tt.ok)
			}
		})
	}
}

func TestController_IdleMergeNeedsPrerequisite(t *testing.T) {
	c := NewController(func() bool { return false })

	o, _ := c.Merge(teacherBatch("A"))

	if o.Accepted {
		t.Fatal("merge accepted without branch setup")
	}
	if o.Redirect != RedirectBranchSetup {
		t.Errorf("Redirect = %q, want %q", o.Redirect, RedirectBranchSetup)
	}
	if c.Stage() != StageIdle || !c.Snapshot().IsEmpty() {
		t.Error("rejected merge changed state")
	}
}

func TestController_IdleMergeOfNothingIsNoOp(t *testing.T) {
	c := NewController(always)

	o, stats := c.Merge(teacherBatch("  ", ""))

	if !o.NoOp || o.Accepted {
		t.Errorf("outcome = %+v, want NoOp", o)
	}
	if stats.Filtered != 2 {
		t.Errorf("Filtered = %d, want 2", stats.Filtered)
	}
	if c.Stage() != StageIdle {
		t.Errorf("Stage = %s, want idle", c.Stage())
	}
}

func TestController_ConfirmBlockedByErrors(t *testing.T) {
	c := NewController(always)
	c.Merge(teacherBatch("A"))
	c.Merge(Batch{Target: CollectionSubjects, Subjects: []Subject{{Name: "X", Year: "SE"}}})

	o, report := c.Confirm()

	if o.Accepted {
		t.Fatal("confirm accepted with an unmapped subject")
	}
	if report.Valid || !report.Has(KindUnmappedSubject) {
		t.Errorf("report = %+v, want UNMAPPED_SUBJECT", report.Errors)
	}
	if c.Stage() != StageExtracted {
		t.Errorf("Stage = %s, want extracted", c.Stage())
	}
	var guard *GuardError
	if !errors.As(o.Err(), &guard) {
		t.Errorf("Err() = %v, want *GuardError", o.Err())
	}
}

func TestController_HappyPath(t *testing.T) {
	c := extractedController(t)

	if o, _ := c.Confirm(); !o.Accepted {
		t.Fatalf("Confirm rejected: %s", o.Reason)
	}
	snap, o := c.BeginCommit()
	if !o.Accepted {
		t.Fatalf("BeginCommit rejected: %s", o.Reason)
	}
	if len(snap.Teachers) != 1 {
		t.Errorf("commit snapshot has %d teachers, want 1", len(snap.Teachers))
	}
	if o := c.FinishCommit(nil); !o.Accepted || o.To != StageAdded {
		t.Fatalf("FinishCommit = %+v, want added", o)
	}

	o, _ = c.Merge(teacherBatch("Late"))
	if !o.NoOp {
		t.Errorf("merge after commit = %+v, want NoOp", o)
	}
	if len(c.Snapshot().Teachers) != 1 {
		t.Error("merge after commit changed the snapshot")
	}
}

func TestController_CommitFailureReturnsToConfirmed(t *testing.T) {
	c := extractedController(t)
	c.Confirm()
	c.BeginCommit()

	o := c.FinishCommit(errors.New("generation rejected at stage VALIDATION: no rooms"))

	if o.Accepted {
		t.Fatal("failed commit accepted")
	}
	if c.Stage() != StageConfirmed || c.Committing() {
		t.Errorf("Stage = %s committing = %v, want confirmed and idle", c.Stage(), c.Committing())
	}
	if _, o := c.BeginCommit(); !o.Accepted {
		t.Errorf("retry rejected: %s", o.Reason)
	}
}

func TestController_RejectsWhileCommitting(t *testing.T) {
	c := extractedController(t)
	c.Confirm()
	c.BeginCommit()

	checks := map[string]Outcome{
		"edit":   c.BeginEdit(),
		"commit": func() Outcome { _, o := c.BeginCommit(); return o }(),
	}
	for name, o := range checks {
		if o.Accepted || o.Reason != "commit in progress" {
			t.Errorf("%s during commit = %+v, want rejected with commit in progress", name, o)
		}
	}
}

func TestController_EditCancelDiscards(t *testing.T) {
	c := extractedController(t)
	c.BeginEdit()

	if o := c.AddTeacher(Teacher{ID: "t2", Name: "Ben"}); !o.Accepted {
		t.Fatalf("AddTeacher rejected: %s", o.Reason)
	}
	if got := len(c.Working().Teachers); got != 2 {
		t.Errorf("working teachers = %d, want 2", got)
	}
	if got := len(c.Snapshot().Teachers); got != 1 {
		t.Errorf("snapshot changed before save: %d teachers", got)
	}

	c.Cancel()
	if got := len(c.Snapshot().Teachers); got != 1 {
		t.Errorf("cancel kept edits: %d teachers", got)
	}
	if c.Stage() != StageExtracted {
		t.Errorf("Stage = %s, want extracted", c.Stage())
	}
}

func TestController_EditSaveApplies(t *testing.T) {
	c := extractedController(t)
	c.BeginEdit()
	c.UpdateTeacher(0, Teacher{ID: "t1", Name: "Asha R."})
	c.AddSubject(Subject{ID: "s2", Name: "OS", Year: "TE"})
	c.AddMapping(Mapping{TeacherID: "t1", SubjectID: "s2"})

	if o := c.Save(); !o.Accepted {
		t.Fatalf("Save rejected: %s", o.Reason)
	}
	snap := c.Snapshot()
	if snap.Teachers[0].Name != "Asha R." || len(snap.Subjects) != 2 || len(snap.Mappings) != 2 {
		t.Errorf("saved snapshot = %+v", snap)
	}
}

func TestController_EditsOnlyWhileEditing(t *testing.T) {
	c := extractedController(t)
	if o := c.AddTeacher(Teacher{Name: "Ben"}); o.Accepted {
		t.Error("AddTeacher accepted outside editing")
	}
	if o := c.RemoveMapping(0); o.Accepted {
		t.Error("RemoveMapping accepted outside editing")
	}
}

func TestController_RemoveCascades(t *testing.T) {
	c := NewController(always)
	c.Merge(Batch{Target: CollectionTeachers, Teachers: []Teacher{{ID: "t1", Name: "A"}, {ID: "t2", Name: "B"}}})
	c.Merge(Batch{Target: CollectionSubjects, Subjects: []Subject{{ID: "s1", Name: "X", Year: "SE"}, {ID: "s2", Name: "Y", Year: "SE"}}})
	c.Merge(Batch{Target: CollectionMapping, Mappings: []Mapping{
		{TeacherID: "t1", SubjectID: "s1"},
		{TeacherName: "A", SubjectName: "Y", SubjectYear: "SE"},
		{TeacherID: "t2", SubjectID: "s2"},
	}})
	c.BeginEdit()

	c.RemoveTeacher(0)
	w := c.Working()
	if len(w.Teachers) != 1 || len(w.Mappings) != 1 || w.Mappings[0].TeacherID != "t2" {
		t.Fatalf("after RemoveTeacher: %+v", w)
	}

	c.RemoveSubject(1)
	w = c.Working()
	if len(w.Subjects) != 1 || len(w.Mappings) != 0 {
		t.Errorf("after RemoveSubject: %+v", w)
	}
}

func TestController_RenameFollowsNameMappings(t *testing.T) {
	c := NewController(always)
	c.Merge(teacherBatch("A"))
	c.Merge(Batch{Target: CollectionSubjects, Subjects: []Subject{{Name: "X", Year: "SE", WeeklyLectures: IntPtr(2)}}})
	c.Merge(Batch{Target: CollectionMapping, Mappings: []Mapping{{TeacherName: "A", SubjectName: "X", SubjectYear: "SE"}}})
	c.BeginEdit()

	c.UpdateTeacher(0, Teacher{Name: "Alice"})
	c.UpdateSubject(0, Subject{Name: "Xylo", Year: "SE", WeeklyLectures: IntPtr(2)})
	c.Save()

	if r := Validate(c.Snapshot()); r.Has(KindInvalidReference) {
		t.Errorf("rename broke mappings: %v", kinds(r.Errors))
	}
}

func TestController_UpdateKeepsIDReferences(t *testing.T) {
	tests := []struct {
		name        string
		teacher     Teacher
		subject     Subject
		wantTeacher string
		wantSubject string
	}{
		{
			name:        "rename without id keeps id",
			teacher:     Teacher{Name: "A. Kumar"},
			subject:     Subject{Name: "DSA", Year: "SE", WeeklyLectures: IntPtr(4)},
			wantTeacher: "t1",
			wantSubject: "s1",
		},
		{
			name:        "new id moves mappings",
			teacher:     Teacher{ID: "t9", Name: "A. Kumar"},
			subject:     Subject{ID: "s9", Name: "DSA", Year: "SE", WeeklyLectures: IntPtr(4)},
			wantTeacher: "t9",
			wantSubject: "s9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := extractedController(t)
			c.BeginEdit()
			if o := c.UpdateTeacher(0, tt.teacher); !o.Accepted {
				t.Fatalf("UpdateTeacher rejected: %s", o.Reason)
			}
			if o := c.UpdateSubject(0, tt.subject); !o.Accepted {
				t.Fatalf("UpdateSubject rejected: %s", o.Reason)
			}
			if o := c.Save(); !o.Accepted {
				t.Fatalf("Save rejected: %s", o.Reason)
			}

			snap := c.Snapshot()
			if snap.Teachers[0].ID != tt.wantTeacher || snap.Subjects[0].ID != tt.wantSubject {
				t.Errorf("ids = %q/%q, want %q/%q", snap.Teachers[0].ID, snap.Subjects[0].ID, tt.wantTeacher, tt.wantSubject)
			}
			m := snap.Mappings[0]
			if m.TeacherID != tt.wantTeacher || m.SubjectID != tt.wantSubject {
				t.Errorf("mapping = %+v", m)
			}
			if r := Validate(snap); !r.Valid {
				t.Errorf("update broke references: %v", kinds(r.Errors))
			}
		})
	}
}

func TestController_EditIndexOutOfRange(t *testing.T) {
	c := extractedController(t)
	c.BeginEdit()

	o := c.UpdateSubject(5, Subject{Name: "Z"})
	if o.Accepted {
		t.Fatal("out of range edit accepted")
	}
	if c.Stage() != StageEditing {
		t.Errorf("Stage = %s, want editing", c.Stage())
	}
}

func TestRestoreController(t *testing.T) {
	invalid := Snapshot{Teachers: []Teacher{{Name: "A"}}, Subjects: []Subject{{Name: "X", Year: "SE"}}}

	tests := []struct {
		name  string
		stage Stage
		snap  Snapshot
		want  Stage
	}{
		{"editing steps back", StageEditing, validSnapshot(), StageExtracted},
		{"valid confirmation kept", StageConfirmed, validSnapshot(), StageConfirmed},
		{"invalid confirmation steps back", StageConfirmed, invalid, StageExtracted},
		{"idle with data", StageIdle, validSnapshot(), StageExtracted},
		{"extracted without data", StageExtracted, Snapshot{}, StageIdle},
		{"unknown stage", Stage("bogus"), Snapshot{}, StageIdle},
		{"added kept", StageAdded, validSnapshot(), StageAdded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := RestoreController(WorkflowState{Stage: tt.stage}, tt.snap, always)
			if c.Stage() != tt.want {
				t.Errorf("Stage = %s, want %s", c.Stage(), tt.want)
			}
		})
	}
}
