package core

// workflow.go implements the collect -> review/edit -> confirm -> commit state
// machine. Every transition is checked against one table; an operation that
// is not allowed in the current stage is rejected with a reason and leaves
// state untouched.
//
//	idle --merge--> extracted --edit--> editing --save/cancel--> extracted
//	extracted --confirm (no errors)--> confirmed --commit--> added
//	confirmed --edit--> editing
//
// Edits are applied to a buffer that Save promotes and Cancel discards.
// Commit is split in two (BeginCommit/FinishCommit) so the caller can run the
// remote call without holding the session lock.

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a position in the workflow.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageExtracted Stage = "extracted"
	StageEditing   Stage = "editing"
	StageConfirmed Stage = "confirmed"
	StageAdded     Stage = "added"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageIdle, StageExtracted, StageEditing, StageConfirmed, StageAdded:
		return true
	}
	return false
}

// Trigger is an event that may move the workflow.
type Trigger string

const (
	TriggerMerge   Trigger = "merge"
	TriggerEdit    Trigger = "edit"
	TriggerModify  Trigger = "modify" // a single record edit while editing
	TriggerCancel  Trigger = "cancel"
	TriggerSave    Trigger = "save"
	TriggerConfirm Trigger = "confirm"
	TriggerCommit  Trigger = "commit"
)

// transitions is the only place legal moves are defined.
var transitions = map[Stage]map[Trigger]Stage{
	StageIdle: {
		TriggerMerge: StageExtracted,
	},
	StageExtracted: {
		TriggerMerge:   StageExtracted,
		TriggerEdit:    StageEditing,
		TriggerConfirm: StageConfirmed,
	},
	StageEditing: {
		TriggerModify: StageEditing,
		TriggerCancel: StageExtracted,
		TriggerSave:   StageExtracted,
	},
	StageConfirmed: {
		TriggerEdit:   StageEditing,
		TriggerCommit: StageAdded,
	},
}

// NextStage returns the stage reached by firing t in from, if allowed.
func NextStage(from Stage, t Trigger) (Stage, bool) {
	to, ok := transitions[from][t]
	return to, ok
}

// RedirectBranchSetup tells the caller to send the operator to branch setup.
const RedirectBranchSetup = "branch-setup"

// WorkflowState is the persisted part of the workflow.
type WorkflowState struct {
	Stage           Stage     `json:"stage"`
	LastPersistedAt time.Time `json:"lastPersistedAt,omitempty"`
}

// Outcome describes the result of one workflow operation.
type Outcome struct {
	Accepted bool    `json:"accepted"`
	NoOp     bool    `json:"noOp,omitempty"`
	Trigger  Trigger `json:"trigger"`
	From     Stage   `json:"from"`
	To       Stage   `json:"to"`
	Reason   string  `json:"reason,omitempty"`
	Redirect string  `json:"redirect,omitempty"`
}

// Err returns a *GuardError for rejected outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.Accepted || o.NoOp {
		return nil
	}
	return &GuardError{Outcome: o}
}

// GuardError is returned when an operation is not allowed in the current stage.
type GuardError struct {
	Outcome Outcome
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("workflow rejected %s in stage %s: %s", e.Outcome.Trigger, e.Outcome.From, e.Outcome.Reason)
}

// Prerequisite reports whether upstream setup is complete.
type Prerequisite func() bool

// Controller owns the snapshot and the workflow stage of one session.
// It is not safe for concurrent use; callers serialize access.
type Controller struct {
	state        WorkflowState
	snapshot     Snapshot
	buffer       *Snapshot
	committing   bool
	prerequisite Prerequisite
}

// NewController returns a controller in the idle stage.
func NewController(prereq Prerequisite) *Controller {
	return &Controller{
		state:        WorkflowState{Stage: StageIdle},
		snapshot:     Snapshot{Teachers: []Teacher{}, Subjects: []Subject{}, Mappings: []Mapping{}},
		prerequisite: prereq,
	}
}

// RestoreController rebuilds a controller from persisted state. Stages that
// cannot be resumed safely are stepped back: an unsaved edit returns to
// extracted, a confirmation that no longer validates returns to extracted,
// and data without a matching stage is placed in the right one.
func RestoreController(state WorkflowState, snap Snapshot, prereq Prerequisite) *Controller {
	c := NewController(prereq)
	c.snapshot = snap.Clone()
	c.state.LastPersistedAt = state.LastPersistedAt

	stage := state.Stage
	if !stage.Valid() {
		stage = StageIdle
	}
	switch stage {
	case StageEditing:
		stage = StageExtracted
	case StageConfirmed:
		if !Validate(c.snapshot).Valid {
			stage = StageExtracted
		}
	}
	if stage == StageIdle && !c.snapshot.IsEmpty() {
		stage = StageExtracted
	}
	if stage == StageExtracted && c.snapshot.IsEmpty() {
		stage = StageIdle
	}
	c.state.Stage = stage
	return c
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage { return c.state.Stage }

// State returns the persisted workflow state.
func (c *Controller) State() WorkflowState { return c.state }

// Committing reports whether a commit is in flight.
func (c *Controller) Committing() bool { return c.committing }

// Snapshot returns a copy of the committed snapshot (edits in progress excluded).
func (c *Controller) Snapshot() Snapshot { return c.snapshot.Clone() }

// Working returns a copy of what the operator currently sees: the edit buffer
// while editing, otherwise the snapshot.
func (c *Controller) Working() Snapshot {
	if c.buffer != nil {
		return c.buffer.Clone()
	}
	return c.snapshot.Clone()
}

// MarkPersisted records when the state was last mirrored to storage.
func (c *Controller) MarkPersisted(at time.Time) {
	c.state.LastPersistedAt = at
}

// IsPrerequisiteSatisfied reports whether branch setup is complete.
func (c *Controller) IsPrerequisiteSatisfied() bool {
	return c.prerequisite == nil || c.prerequisite()
}

// guard checks the transition table and the in-flight commit.
func (c *Controller) guard(t Trigger) (Outcome, bool) {
	o := Outcome{Trigger: t, From: c.state.Stage, To: c.state.Stage}
	if c.committing {
		o.Reason = "commit in progress"
		return o, false
	}
	to, ok := NextStage(c.state.Stage, t)
	if !ok {
		o.Reason = fmt.Sprintf("cannot %s while %s", t, c.state.Stage)
		return o, false
	}
	o.To = to
	return o, true
}

func (c *Controller) accept(o Outcome) Outcome {
	o.Accepted = true
	c.state.Stage = o.To
	return o
}

// Merge folds a batch into the snapshot. The first merge that yields data
// moves idle to extracted. Once added, merges are ignored.
func (c *Controller) Merge(batch Batch) (Outcome, MergeStats) {
	stats := MergeStats{Target: batch.Target, Received: batch.Len()}

	if c.state.Stage == StageAdded && !c.committing {
		return Outcome{
			NoOp:    true,
			Trigger: TriggerMerge,
			From:    StageAdded,
			To:      StageAdded,
			Reason:  "dataset is frozen after commit",
		}, stats
	}

	o, ok := c.guard(TriggerMerge)
	if !ok {
		return o, stats
	}
	if !batch.Target.Valid() {
		o.To = o.From
		o.Reason = fmt.Sprintf("unknown batch target %q", batch.Target)
		return o, stats
	}
	if c.state.Stage == StageIdle && !c.IsPrerequisiteSatisfied() {
		o.To = o.From
		o.Reason = "branch setup is incomplete"
		o.Redirect = RedirectBranchSetup
		return o, stats
	}

	merged, stats := MergeWithStats(c.snapshot, batch)
	if merged.IsEmpty() {
		return Outcome{
			NoOp:    true,
			Trigger: TriggerMerge,
			From:    c.state.Stage,
			To:      c.state.Stage,
			Reason:  "batch contained no usable records",
		}, stats
	}
	c.snapshot = merged
	return c.accept(o), stats
}

// BeginEdit opens the edit buffer.
func (c *Controller) BeginEdit() Outcome {
	o, ok := c.guard(TriggerEdit)
	if !ok {
		return o
	}
	buf := c.snapshot.Clone()
	c.buffer = &buf
	return c.accept(o)
}

// Cancel discards the edit buffer.
func (c *Controller) Cancel() Outcome {
	o, ok := c.guard(TriggerCancel)
	if !ok {
		return o
	}
	c.buffer = nil
	return c.accept(o)
}

// Save promotes the edit buffer to the snapshot.
func (c *Controller) Save() Outcome {
	o, ok := c.guard(TriggerSave)
	if !ok {
		return o
	}
	if c.buffer != nil {
		c.snapshot = *c.buffer
		c.buffer = nil
	}
	return c.accept(o)
}

// Confirm locks the dataset for commit if it has no blocking errors.
func (c *Controller) Confirm() (Outcome, Report) {
	o, ok := c.guard(TriggerConfirm)
	report := Validate(c.snapshot)
	if !ok {
		return o, report
	}
	if !report.Valid {
		o.To = o.From
		o.Reason = fmt.Sprintf("dataset has %d blocking error(s)", len(report.Errors))
		return o, report
	}
	return c.accept(o), report
}

// BeginCommit marks a commit as in flight and returns the snapshot to send.
func (c *Controller) BeginCommit() (Snapshot, Outcome) {
	o, ok := c.guard(TriggerCommit)
	if !ok {
		return Snapshot{}, o
	}
	c.committing = true
	o.Accepted = true
	o.To = StageConfirmed // stays confirmed until FinishCommit
	return c.snapshot.Clone(), o
}

// FinishCommit completes an in-flight commit. On failure the workflow stays
// confirmed so the operator can retry; nothing is partially committed.
func (c *Controller) FinishCommit(err error) Outcome {
	o := Outcome{Trigger: TriggerCommit, From: c.state.Stage, To: c.state.Stage}
	if !c.committing {
		o.Reason = "no commit in progress"
		return o
	}
	c.committing = false
	if err != nil {
		o.Reason = err.Error()
		return o
	}
	o.To = StageAdded
	return c.accept(o)
}

// modify applies fn to the edit buffer.
func (c *Controller) modify(fn func(buf *Snapshot) error) Outcome {
	o, ok := c.guard(TriggerModify)
	if !ok {
		return o
	}
	if c.buffer == nil {
		buf := c.snapshot.Clone()
		c.buffer = &buf
	}
	next := c.buffer.Clone()
	if err := fn(&next); err != nil {
		o.Reason = err.Error()
		return o
	}
	c.buffer = &next
	return c.accept(o)
}

// AddTeacher appends a teacher to the edit buffer.
func (c *Controller) AddTeacher(t Teacher) Outcome {
	return c.modify(func(buf *Snapshot) error {
		buf.Teachers = append(buf.Teachers, t)
		return nil
	})
}

// UpdateTeacher replaces the teacher at index i. An update without an ID
// keeps the current one. Mappings follow the change: by-name references take
// the new name and by-ID references take the new ID.
func (c *Controller) UpdateTeacher(i int, t Teacher) Outcome {
	return c.modify(func(buf *Snapshot) error {
		if i < 0 || i >= len(buf.Teachers) {
			return fmt.Errorf("teacher index %d out of range", i)
		}
		if strings.TrimSpace(t.ID) == "" {
			t.ID = buf.Teachers[i].ID
		}
		res := newResolver(*buf)
		for j, m := range buf.Mappings {
			if ti, ok := res.teacher(m); !ok || ti != i {
				continue
			}
			if strings.TrimSpace(m.TeacherID) != "" {
				buf.Mappings[j].TeacherID = t.ID
			} else {
				buf.Mappings[j].TeacherName = t.Name
			}
		}
		buf.Teachers[i] = t
		return nil
	})
}

// RemoveTeacher deletes the teacher at index i and every mapping that refers to it.
func (c *Controller) RemoveTeacher(i int) Outcome {
	return c.modify(func(buf *Snapshot) error {
		if i < 0 || i >= len(buf.Teachers) {
			return fmt.Errorf("teacher index %d out of range", i)
		}
		res := newResolver(*buf)
		kept := buf.Mappings[:0:0]
		for _, m := range buf.Mappings {
			if ti, ok := res.teacher(m); ok && ti == i {
				continue
			}
			kept = append(kept, m)
		}
		buf.Mappings = kept
		buf.Teachers = append(buf.Teachers[:i:i], buf.Teachers[i+1:]...)
		return nil
	})
}

// AddSubject appends a subject to the edit buffer.
func (c *Controller) AddSubject(s Subject) Outcome {
	return c.modify(func(buf *Snapshot) error {
		buf.Subjects = append(buf.Subjects, s)
		return nil
	})
}

// UpdateSubject replaces the subject at index i, keeping its ID when the
// update has none. Mappings follow as in UpdateTeacher.
func (c *Controller) UpdateSubject(i int, s Subject) Outcome {
	return c.modify(func(buf *Snapshot) error {
		if i < 0 || i >= len(buf.Subjects) {
			return fmt.Errorf("subject index %d out of range", i)
		}
		if strings.TrimSpace(s.ID) == "" {
			s.ID = buf.Subjects[i].ID
		}
		res := newResolver(*buf)
		for j, m := range buf.Mappings {
			if si, ok := res.subject(m); !ok || si != i {
				continue
			}
			if strings.TrimSpace(m.SubjectID) != "" {
				buf.Mappings[j].SubjectID = s.ID
			} else {
				buf.Mappings[j].SubjectName = s.Name
				buf.Mappings[j].SubjectYear = s.Year
			}
		}
		buf.Subjects[i] = s
		return nil
	})
}

// RemoveSubject deletes the subject at index i and every mapping that refers to it.
func (c *Controller) RemoveSubject(i int) Outcome {
	return c.modify(func(buf *Snapshot) error {
		if i < 0 || i >= len(buf.Subjects) {
			return fmt.Errorf("subject index %d out of range", i)
		}
		res := newResolver(*buf)
		kept := buf.Mappings[:0:0]
		for _, m := range buf.Mappings {
			if si, ok := res.subject(m); ok && si == i {
				continue
			}
			kept = append(kept, m)
		}
		buf.Mappings = kept
		buf.Subjects = append(buf.Subjects[:i:i], buf.Subjects[i+1:]...)
		return nil
	})
}

// AddMapping appends a mapping unless the same pair already exists.
func (c *Controller) AddMapping(m Mapping) Outcome {
	return c.modify(func(buf *Snapshot) error {
		key := MappingKey(m)
		if key == "" {
			return fmt.Errorf("mapping needs both a teacher and a subject")
		}
		for _, existing := range buf.Mappings {
			if MappingKey(existing) == key {
				return fmt.Errorf("mapping already exists")
			}
		}
		buf.Mappings = append(buf.Mappings, m)
		return nil
	})
}

// RemoveMapping deletes the mapping at index i.
func (c *Controller) RemoveMapping(i int) Outcome {
	return c.modify(func(buf *Snapshot) error {
		if i < 0 || i >= len(buf.Mappings) {
			return fmt.Errorf("mapping index %d out of range", i)
		}
		buf.Mappings = append(buf.Mappings[:i:i], buf.Mappings[i+1:]...)
		return nil
	})
}
