package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the Service.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrCommitInFlight  = errors.New("commit in progress")
	ErrNoCommit        = errors.New("no commit has been started")
	ErrNoDraft         = errors.New("no draft to restore")
	ErrUnknownEditOp   = errors.New("unknown edit operation")
	ErrIncompleteEdit  = errors.New("incomplete edit")
)

// DefaultCommitTimeout bounds one generation call.
var DefaultCommitTimeout = 2 * time.Minute

const commitListenerBuffer = 10

// finalizeTimeout bounds the store writes that follow a commit.
const finalizeTimeout = 10 * time.Second

// ServiceConfig tunes session behaviour.
type ServiceConfig struct {
	AutosaveInterval time.Duration
	DraftMaxAge      time.Duration
	CommitTimeout    time.Duration
	IdleTimeout      time.Duration
}

// Service owns every live intake session.
type Service struct {
	store     Store
	branches  BranchSource
	generator Generator
	limiter   *CommitLimiter
	history   *History
	cfg       ServiceConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	commits sync.WaitGroup
}

// NewService creates a Service.
func NewService(store Store, branches BranchSource, gen Generator, limiter *CommitLimiter, cfg ServiceConfig) *Service {
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.DraftMaxAge <= 0 {
		cfg.DraftMaxAge = DefaultDraftMaxAge
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultCommitTimeout
	}
	if limiter == nil {
		limiter = NewCommitLimiter(0, 0)
	}
	return &Service{
		store:     store,
		branches:  branches,
		generator: gen,
		limiter:   limiter,
		history:   NewHistory(store),
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Session is one operator's intake run.
type Session struct {
	ID        string
	BranchID  string
	CreatedAt time.Time

	mu       sync.Mutex
	ctrl     *Controller
	drafts   *Drafts
	autosave *AutoSaver
	offer    *Draft
	commit   *commitRun
	lastSeen time.Time
	log      *slog.Logger
}

type commitRun struct {
	progress   CommitProgress
	result     *CommitResult
	done       chan struct{}
	listeners  []chan CommitProgress
	listenerMu sync.Mutex
}

// SessionView is a read-only picture of a session.
type SessionView struct {
	ID              string          `json:"id"`
	BranchID        string          `json:"branchId"`
	Stage           Stage           `json:"stage"`
	Committing      bool            `json:"committing"`
	Snapshot        Snapshot        `json:"snapshot"`
	Counts          Counts          `json:"counts"`
	LastPersistedAt time.Time       `json:"lastPersistedAt,omitempty"`
	Draft           *DraftOffer     `json:"draft,omitempty"`
	Uploads         []UploadMeta    `json:"uploads"`
	Commit          *CommitProgress `json:"commit,omitempty"`
}

// DraftOffer describes a saved draft the operator may restore.
type DraftOffer struct {
	Timestamp time.Time `json:"timestamp"`
	Stale     bool      `json:"stale"`
	Counts    Counts    `json:"counts"`
}

// EditOp is a single record edit applied while editing.
type EditOp struct {
	Op      string   `json:"op" validate:"required,oneof=addTeacher updateTeacher removeTeacher addSubject updateSubject removeSubject addMapping removeMapping"`
	Index   int      `json:"index" validate:"gte=0"`
	Teacher *Teacher `json:"teacher,omitempty"`
	Subject *Subject `json:"subject,omitempty"`
	Mapping *Mapping `json:"mapping,omitempty"`
}

// CreateSession opens a session for a branch. When resumeID names a session
// whose state was persisted earlier, that state is restored and any saved
// draft is offered.
func (s *Service) CreateSession(ctx context.Context, branchID, resumeID string) (*SessionView, error) {
	branch, ok := s.branches.Branch(branchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, branchID)
	}

	if resumeID != "" {
		s.mu.RLock()
		existing, live := s.sessions[resumeID]
		s.mu.RUnlock()
		if live {
			return s.view(ctx, existing), nil
		}
	}

	id := resumeID
	if id == "" {
		id = uuid.New().String()
	}
	sess := &Session{
		ID:        id,
		BranchID:  branch.ID,
		CreatedAt: s.now(),
		drafts:    NewDrafts(s.store, id, s.cfg.DraftMaxAge),
		lastSeen:  s.now(),
		log:       slog.With("session_id", id, "branch_id", branch.ID),
	}
	prereq := s.prerequisite(branch.ID)

	if resumeID != "" {
		state, err := sess.drafts.LoadState(ctx)
		if err != nil {
			sess.log.Warn("could not load mirrored stage", "error", err)
		}
		snap, err := sess.drafts.LoadSnapshot(ctx)
		if err != nil {
			sess.log.Warn("could not load mirrored snapshot", "error", err)
		}
		sess.ctrl = RestoreController(state, snap, prereq)

		draft, err := sess.drafts.LoadDraft(ctx)
		if err != nil {
			sess.log.Warn("could not load draft", "error", err)
		}
		// Stale drafts are still offered, flagged, and never applied unasked.
		if draft != nil && (draft.Stale || draft.Restorable(s.now(), s.cfg.DraftMaxAge)) {
			sess.offer = draft
		}
	} else {
		sess.ctrl = NewController(prereq)
	}

	sess.autosave = NewAutoSaver(s.cfg.AutosaveInterval, func(ctx context.Context) error {
		return s.autosaveOnce(ctx, sess)
	}, sess.log)
	if inProgress(sess.ctrl.Stage()) {
		sess.autosave.Start(context.Background())
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	sess.log.Info("session opened", "stage", sess.ctrl.Stage(), "resumed", resumeID != "", "draft_offered", sess.offer != nil)
	return s.view(ctx, sess), nil
}

// Session returns a view of the session.
func (s *Service) Session(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess), nil
}

// EndSession stops the session's background work and forgets it. Persisted
// drafts are kept so the session can be resumed.
func (s *Service) EndSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	committing := sess.ctrl.Committing()
	sess.mu.Unlock()
	if committing {
		s.mu.Unlock()
		return ErrCommitInFlight
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	s.teardown(ctx, sess)
	sess.log.Info("session ended")
	return nil
}

// Merge folds a batch from one input channel into the session's snapshot.
// Records without an ID are given one first.
func (s *Service) Merge(ctx context.Context, id string, batch Batch) (Outcome, MergeStats, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, MergeStats{}, err
	}
	assignIDs(&batch)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	outcome, stats := sess.ctrl.Merge(batch)
	sess.log.Info("batch merged",
		"channel", batch.Channel,
		"target", batch.Target,
		"accepted", outcome.Accepted,
		"noop", outcome.NoOp,
		"stage", outcome.To,
		"received", stats.Received,
		"added", stats.Added,
		"duplicates", stats.Duplicates,
		"filtered", stats.Filtered,
	)
	if !outcome.Accepted {
		return outcome, stats, nil
	}

	if batch.FileName != "" {
		meta := UploadMeta{
			Channel:    batch.Channel,
			Target:     batch.Target,
			FileName:   batch.FileName,
			Records:    stats.Received,
			UploadedAt: s.now().UTC(),
		}
		if err := sess.drafts.SaveUpload(ctx, meta); err != nil {
			sess.log.Warn("could not save upload metadata", "error", err)
		}
	}
	s.mirror(ctx, sess)
	sess.autosave.Start(context.Background())
	return outcome, stats, nil
}

// Validate runs the validator over what the operator currently sees.
func (s *Service) Validate(ctx context.Context, id string) (Report, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Report{}, err
	}
	branch, _ := s.branches.Branch(sess.BranchID)

	sess.mu.Lock()
	snap := sess.ctrl.Working()
	sess.mu.Unlock()

	return ValidateForBranch(snap, branch), nil
}

// BeginEdit moves the session into editing.
func (s *Service) BeginEdit(ctx context.Context, id string) (Outcome, error) {
	return s.transition(ctx, id, (*Controller).BeginEdit)
}

// CancelEdit discards pending edits.
func (s *Service) CancelEdit(ctx context.Context, id string) (Outcome, error) {
	return s.transition(ctx, id, (*Controller).Cancel)
}

// SaveEdit keeps pending edits.
func (s *Service) SaveEdit(ctx context.Context, id string) (Outcome, error) {
	return s.transition(ctx, id, (*Controller).Save)
}

// Confirm locks the dataset for commit. The report explains a rejection.
func (s *Service) Confirm(ctx context.Context, id string) (Outcome, Report, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, Report{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	outcome, report := sess.ctrl.Confirm()
	s.logOutcome(sess, outcome)
	if outcome.Accepted {
		s.mirror(ctx, sess)
	}
	return outcome, report, nil
}

// ApplyEdit applies one record edit to the edit buffer.
func (s *Service) ApplyEdit(ctx context.Context, id string, op EditOp) (Outcome, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var outcome Outcome
	switch op.Op {
	case "addTeacher", "updateTeacher":
		if op.Teacher == nil {
			return Outcome{}, fmt.Errorf("%w: %s needs a teacher", ErrIncompleteEdit, op.Op)
		}
		t := *op.Teacher
		if op.Op == "addTeacher" {
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			outcome = sess.ctrl.AddTeacher(t)
		} else {
			outcome = sess.ctrl.UpdateTeacher(op.Index, t)
		}
	case "removeTeacher":
		outcome = sess.ctrl.RemoveTeacher(op.Index)
	case "addSubject", "updateSubject":
		if op.Subject == nil {
			return Outcome{}, fmt.Errorf("%w: %s needs a subject", ErrIncompleteEdit, op.Op)
		}
		sub := *op.Subject
		if op.Op == "addSubject" {
			if sub.ID == "" {
				sub.ID = uuid.New().String()
			}
			outcome = sess.ctrl.AddSubject(sub)
		} else {
			outcome = sess.ctrl.UpdateSubject(op.Index, sub)
		}
	case "removeSubject":
		outcome = sess.ctrl.RemoveSubject(op.Index)
	case "addMapping":
		if op.Mapping == nil {
			return Outcome{}, fmt.Errorf("%w: %s needs a mapping", ErrIncompleteEdit, op.Op)
		}
		outcome = sess.ctrl.AddMapping(*op.Mapping)
	case "removeMapping":
		outcome = sess.ctrl.RemoveMapping(op.Index)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEditOp, op.Op)
	}
	if !outcome.Accepted {
		sess.log.Debug("edit rejected", "op", op.Op, "reason", outcome.Reason)
	}
	return outcome, nil
}

// StartCommit begins sending the confirmed dataset to the generation service.
// The call returns once the commit is running; progress is available through
// CommitStatus and SubscribeCommit.
func (s *Service) StartCommit(ctx context.Context, id string) (Outcome, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, err
	}
	branch, ok := s.branches.Branch(sess.BranchID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrBranchNotFound, sess.BranchID)
	}

	sess.mu.Lock()
	snap, outcome := sess.ctrl.BeginCommit()
	if !outcome.Accepted {
		sess.mu.Unlock()
		s.logOutcome(sess, outcome)
		return outcome, nil
	}
	run := &commitRun{
		progress: CommitProgress{
			SessionID: sess.ID,
			Phase:     CommitInitializing,
			Message:   "Preparing submission",
			StartedAt: s.now().UTC(),
		},
		done: make(chan struct{}),
	}
	sess.commit = run
	sess.mu.Unlock()

	sess.log.Info("commit started", "teachers", len(snap.Teachers), "subjects", len(snap.Subjects), "mappings", len(snap.Mappings))

	s.commits.Add(1)
	go s.runCommit(sess, run, *branch, snap)
	return outcome, nil
}

// runCommit performs the generation call on a context detached from the
// request that started it.
func (s *Service) runCommit(sess *Session, run *commitRun, branch Branch, snap Snapshot) {
	defer s.commits.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommitTimeout)
	defer cancel()

	var (
		result *GenerationResult
		err    error
	)
	if err = s.limiter.Acquire(ctx); err == nil {
		run.update(CommitProcessing, "Generating timetables", "")
		result, err = s.generator.GenerateFull(ctx, GenerationRequest{
			Branch:   branch,
			Snapshot: ResolveMappings(snap),
		})
		s.limiter.Release()
	}
	run.update(CommitFinalizing, "Recording result", "")

	// The generation call may have used up ctx.
	ctx, cancelFinal := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancelFinal()

	sess.mu.Lock()
	outcome := sess.ctrl.FinishCommit(err)
	if outcome.Accepted {
		if cerr := sess.drafts.ClearDraft(ctx); cerr != nil {
			sess.log.Warn("could not clear draft after commit", "error", cerr)
		}
		sess.offer = nil
	}
	s.mirror(ctx, sess)
	sess.mu.Unlock()

	if outcome.Accepted {
		sess.autosave.Stop()
		entry := HistoryEntry{
			ID:          uuid.New().String(),
			SessionID:   sess.ID,
			BranchID:    branch.ID,
			BranchName:  branch.Name,
			CommittedAt: s.now().UTC(),
			Counts:      snap.Counts(),
		}
		if result != nil {
			entry.QualityScore = result.QualityScore
		}
		if herr := s.history.Append(ctx, entry); herr != nil {
			sess.log.Warn("could not record history", "error", herr)
		}
		sess.log.Info("commit succeeded", "stage", outcome.To)
		run.finish(&CommitResult{Result: result}, CommitDone, "Timetables generated", "")
		return
	}

	if err == nil {
		err = errors.New(outcome.Reason)
	}
	sess.log.Error("commit failed", "stage", outcome.To, "error", err)
	run.finish(&CommitResult{Err: err}, CommitFailed, "Generation failed", err.Error())
}

// CommitStatus returns the latest progress and, once finished, the result.
func (s *Service) CommitStatus(id string) (CommitProgress, *CommitResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return CommitProgress{}, nil, err
	}
	sess.mu.Lock()
	run := sess.commit
	sess.mu.Unlock()
	if run == nil {
		return CommitProgress{}, nil, ErrNoCommit
	}
	progress, result := run.snapshot()
	return progress, result, nil
}

// SubscribeCommit returns a channel of progress updates. The current progress
// is sent first and the channel is closed when the commit finishes.
func (s *Service) SubscribeCommit(id string) (<-chan CommitProgress, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	run := sess.commit
	sess.mu.Unlock()
	if run == nil {
		return nil, ErrNoCommit
	}
	return run.subscribe(), nil
}

// DraftOffer returns the draft offered for restore, if any.
func (s *Service) DraftOffer(id string) (*DraftOffer, error) {
	sess, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return offerOf(sess.offer), nil
}

// AcceptDraft replaces the session's data with the offered draft. It is only
// allowed before editing or confirmation has begun.
func (s *Service) AcceptDraft(ctx context.Context, id string) (Outcome, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.offer == nil {
		return Outcome{}, ErrNoDraft
	}
	from := sess.ctrl.Stage()
	outcome := Outcome{Trigger: TriggerMerge, From: from, To: from}
	if sess.ctrl.Committing() {
		outcome.Reason = "commit in progress"
		return outcome, nil
	}
	if from != StageIdle && from != StageExtracted {
		outcome.Reason = fmt.Sprintf("cannot restore a draft while %s", from)
		return outcome, nil
	}

	sess.ctrl = RestoreController(WorkflowState{Stage: StageExtracted}, sess.offer.Snapshot, sess.ctrl.prerequisite)
	sess.offer = nil
	outcome.Accepted = true
	outcome.To = sess.ctrl.Stage()
	s.mirror(ctx, sess)
	if inProgress(outcome.To) {
		sess.autosave.Start(context.Background())
	}
	sess.log.Info("draft restored", "stage", outcome.To)
	return outcome, nil
}

// RejectDraft dismisses the offer. The session keeps its fresh state and the
// stored draft stays until a commit succeeds.
func (s *Service) RejectDraft(ctx context.Context, id string) error {
	sess, err := s.touch(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.offer == nil {
		return ErrNoDraft
	}
	sess.offer = nil
	sess.log.Info("draft offer dismissed")
	return nil
}

// RequireStage returns a GuardError unless the session is in stage want.
func (s *Service) RequireStage(id string, want Stage) error {
	sess, err := s.touch(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	stage := sess.ctrl.Stage()
	sess.mu.Unlock()
	if stage != want {
		return &GuardError{Outcome: Outcome{
			From:   stage,
			To:     stage,
			Reason: fmt.Sprintf("only available once %s, session is %s", want, stage),
		}}
	}
	return nil
}

// Branch returns the branch a session was opened for.
func (s *Service) Branch(id string) (*Branch, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	b, ok := s.branches.Branch(sess.BranchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, sess.BranchID)
	}
	return b, nil
}

// Branches lists the configured branches.
func (s *Service) Branches() []Branch {
	return s.branches.Branches()
}

// History returns recent successful commits, newest first.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	return s.history.List(ctx)
}

// LimiterStatus reports commit slot usage.
func (s *Service) LimiterStatus() CommitLimiterStatus {
	return s.limiter.Status()
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops every session's autosave and waits for running commits.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.autosave.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.commits.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for commits: %w", ctx.Err())
	}

	for _, sess := range sessions {
		sess.mu.Lock()
		s.saveDraftLocked(ctx, sess)
		sess.mu.Unlock()
	}
	return nil
}

func (s *Service) get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// touch looks a session up and marks it as recently used.
func (s *Service) touch(id string) (*Session, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *Service) transition(ctx context.Context, id string, fire func(*Controller) Outcome) (Outcome, error) {
	sess, err := s.touch(id)
	if err != nil {
		return Outcome{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	outcome := fire(sess.ctrl)
	s.logOutcome(sess, outcome)
	if outcome.Accepted {
		s.mirror(ctx, sess)
	}
	return outcome, nil
}

func (s *Service) logOutcome(sess *Session, o Outcome) {
	if o.Accepted {
		sess.log.Info("stage transition", "trigger", o.Trigger, "from", o.From, "to", o.To)
		return
	}
	sess.log.Debug("transition rejected", "trigger", o.Trigger, "stage", o.From, "reason", o.Reason)
}

// mirror persists stage and snapshot. Callers hold sess.mu.
func (s *Service) mirror(ctx context.Context, sess *Session) {
	if err := sess.drafts.SaveSnapshot(ctx, sess.ctrl.Snapshot()); err != nil {
		sess.log.Warn("could not mirror snapshot", "error", err)
		return
	}
	sess.ctrl.MarkPersisted(s.now().UTC())
	if err := sess.drafts.SaveState(ctx, sess.ctrl.State()); err != nil {
		sess.log.Warn("could not mirror stage", "error", err)
	}
}

// saveDraftLocked writes the working snapshot as a draft. Callers hold sess.mu.
func (s *Service) saveDraftLocked(ctx context.Context, sess *Session) {
	if !inProgress(sess.ctrl.Stage()) {
		return
	}
	saved, err := sess.drafts.SaveDraft(ctx, sess.ctrl.Working())
	if err != nil {
		sess.log.Warn("draft save failed", "error", err)
		return
	}
	if saved {
		sess.log.Debug("draft saved", "stage", sess.ctrl.Stage())
	}
}

func (s *Service) autosaveOnce(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !inProgress(sess.ctrl.Stage()) {
		return nil
	}
	_, err := sess.drafts.SaveDraft(ctx, sess.ctrl.Working())
	return err
}

func (s *Service) teardown(ctx context.Context, sess *Session) {
	sess.autosave.Stop()
	sess.mu.Lock()
	s.saveDraftLocked(ctx, sess)
	sess.mu.Unlock()
}

func (s *Service) prerequisite(branchID string) Prerequisite {
	return func() bool {
		b, ok := s.branches.Branch(branchID)
		return ok && b.Ready()
	}
}

func (s *Service) view(ctx context.Context, sess *Session) *SessionView {
	uploads, err := sess.drafts.LoadUploads(ctx)
	if err != nil {
		sess.log.Warn("could not load upload metadata", "error", err)
	}

	sess.mu.Lock()
	snap := sess.ctrl.Working()
	v := &SessionView{
		ID:              sess.ID,
		BranchID:        sess.BranchID,
		Stage:           sess.ctrl.Stage(),
		Committing:      sess.ctrl.Committing(),
		Snapshot:        snap,
		Counts:          snap.Counts(),
		LastPersistedAt: sess.ctrl.State().LastPersistedAt,
		Draft:           offerOf(sess.offer),
		Uploads:         uploads,
	}
	run := sess.commit
	sess.mu.Unlock()

	if run != nil {
		progress, _ := run.snapshot()
		v.Commit = &progress
	}
	return v
}

func offerOf(d *Draft) *DraftOffer {
	if d == nil {
		return nil
	}
	return &DraftOffer{Timestamp: d.Timestamp, Stale: d.Stale, Counts: d.Snapshot.Counts()}
}

// inProgress reports whether a stage holds unsaved operator work.
func inProgress(stage Stage) bool {
	switch stage {
	case StageExtracted, StageEditing, StageConfirmed:
		return true
	}
	return false
}

// assignIDs gives every teacher and subject without an ID a fresh one. The
// record slices are copied first so the caller's batch is left alone.
func assignIDs(b *Batch) {
	b.Teachers = append([]Teacher(nil), b.Teachers...)
	b.Subjects = append([]Subject(nil), b.Subjects...)
	for i := range b.Teachers {
		if strings.TrimSpace(b.Teachers[i].ID) == "" {
			b.Teachers[i].ID = uuid.New().String()
		}
	}
	for i := range b.Subjects {
		if strings.TrimSpace(b.Subjects[i].ID) == "" {
			b.Subjects[i].ID = uuid.New().String()
		}
	}
}

func (r *commitRun) update(phase CommitPhase, msg, errMsg string) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()

	r.progress.Phase = phase
	r.progress.Message = msg
	r.progress.Error = errMsg
	for _, ch := range r.listeners {
		select {
		case ch <- r.progress:
		default:
			// slow listener, skip
		}
	}
}

func (r *commitRun) finish(result *CommitResult, phase CommitPhase, msg, errMsg string) {
	r.listenerMu.Lock()
	r.result = result
	r.listenerMu.Unlock()

	r.update(phase, msg, errMsg)

	r.listenerMu.Lock()
	for _, ch := range r.listeners {
		close(ch)
	}
	r.listeners = nil
	r.listenerMu.Unlock()
	close(r.done)
}

func (r *commitRun) subscribe() <-chan CommitProgress {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()

	ch := make(chan CommitProgress, commitListenerBuffer)
	ch <- r.progress
	if r.progress.Phase.Terminal() {
		close(ch)
		return ch
	}
	r.listeners = append(r.listeners, ch)
	return ch
}

func (r *commitRun) snapshot() (CommitProgress, *CommitResult) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	return r.progress, r.result
}
