package core

// validation.go classifies every record and cross-reference of a snapshot
// into blocking errors and advisory warnings.
//
// Validation runs as independent passes whose results are concatenated:
//  1. Collection presence: at least one teacher and one subject
//  2. Teacher well-formedness: names, duplicates, daily lecture limits
//  3. Subject well-formedness: names, years, duplicates, weekly lectures
//  4. Mapping integrity: dangling references, unmapped subjects and teachers
//  5. Workload sanity: assignments per teacher against their daily limit
//
// Pass order only affects presentation. Validate is pure and total: it never
// mutates the snapshot and reports malformed shapes as findings.

import (
	"fmt"
	"strings"
)

// Severity says whether a finding blocks progress.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// FindingKind classifies a finding.
type FindingKind string

const (
	KindEmptyCollection  FindingKind = "EMPTY_COLLECTION"
	KindMissingField     FindingKind = "MISSING_FIELD"
	KindDuplicate        FindingKind = "DUPLICATE"
	KindUnusualValue     FindingKind = "UNUSUAL_VALUE"
	KindMissingOptional  FindingKind = "MISSING_OPTIONAL"
	KindPracticalWarning FindingKind = "PRACTICAL_WARNING"
	KindInvalidReference FindingKind = "INVALID_REFERENCE"
	KindUnmappedSubject  FindingKind = "UNMAPPED_SUBJECT"
	KindUnmappedTeacher  FindingKind = "UNMAPPED_TEACHER"
	KindHighWorkload     FindingKind = "HIGH_WORKLOAD"
	KindExtremeWorkload  FindingKind = "EXTREME_WORKLOAD"
	KindUnknownYear      FindingKind = "UNKNOWN_YEAR"
)

// Soft ranges for numeric fields. Values outside only warn.
const (
	MinLecturesPerDay    = 1
	MaxLecturesPerDay    = 10
	MinWeeklyLectures    = 1
	MaxWeeklyLectures    = 20
	MinPracticalLectures = 2
	ExtremeWorkload      = 8
)

// Finding is a single validation result.
type Finding struct {
	Kind     FindingKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Field    string      `json:"field"`           // "teachers", "subjects[2].year", ...
	Index    *int        `json:"index,omitempty"` // position in its collection
	Value    string      `json:"value,omitempty"` // offending value, if any
}

func (f Finding) Error() string {
	if f.Field != "" {
		return fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return f.Message
}

// Report is the outcome of validating a snapshot.
type Report struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// Has reports whether the report contains a finding of the given kind.
func (r Report) Has(kind FindingKind) bool {
	return r.Count(kind) > 0
}

// Count returns how many findings of the given kind the report contains.
func (r Report) Count(kind FindingKind) int {
	n := 0
	for _, f := range r.Errors {
		if f.Kind == kind {
			n++
		}
	}
	for _, f := range r.Warnings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Summary returns a short human-readable tally.
func (r Report) Summary() string {
	if r.Valid && len(r.Warnings) == 0 {
		return "no problems found"
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
}

// Validate checks a snapshot. It is deterministic for a given snapshot.
func Validate(s Snapshot) Report {
	v := &snapshotValidator{snap: s, res: newResolver(s)}
	v.checkCollections()
	v.checkTeachers()
	v.checkSubjects()
	v.checkMappings()
	v.checkWorkload()
	return v.report()
}

// ValidateForBranch runs Validate and additionally warns about subjects whose
// year is not one of the branch's academic years.
func ValidateForBranch(s Snapshot, b *Branch) Report {
	v := &snapshotValidator{snap: s, res: newResolver(s)}
	v.checkCollections()
	v.checkTeachers()
	v.checkSubjects()
	v.checkMappings()
	v.checkWorkload()
	if b != nil && len(b.AcademicYears) > 0 {
		v.checkYears(b)
	}
	return v.report()
}

type snapshotValidator struct {
	snap     Snapshot
	res      *resolver
	errors   []Finding
	warnings []Finding

	// assigned[i] is the number of resolved mappings for teacher i.
	assigned []int
}

func (v *snapshotValidator) report() Report {
	r := Report{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
	if r.Errors == nil {
		r.Errors = []Finding{}
	}
	if r.Warnings == nil {
		r.Warnings = []Finding{}
	}
	return r
}

func (v *snapshotValidator) errorf(kind FindingKind, field string, index *int, value, format string, args ...any) {
	v.errors = append(v.errors, Finding{
		Kind:     kind,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Field:    field,
		Index:    index,
		Value:    value,
	})
}

func (v *snapshotValidator) warnf(kind FindingKind, field string, index *int, value, format string, args ...any) {
	v.warnings = append(v.warnings, Finding{
		Kind:     kind,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Field:    field,
		Index:    index,
		Value:    value,
	})
}

func (v *snapshotValidator) checkCollections() {
	if len(v.snap.Teachers) == 0 {
		v.errorf(KindEmptyCollection, "teachers", nil, "", "at least one teacher is required")
	}
	if len(v.snap.Subjects) == 0 {
		v.errorf(KindEmptyCollection, "subjects", nil, "", "at least one subject is required")
	}
}

func (v *snapshotValidator) checkTeachers() {
	firstSeen := make(map[string]int, len(v.snap.Teachers))
	idSeen := make(map[string]int, len(v.snap.Teachers))

	for i, t := range v.snap.Teachers {
		field := fmt.Sprintf("teachers[%d]", i)
		key := TeacherKey(t)

		// References resolve to the first holder of an id.
		if id := strings.TrimSpace(t.ID); id != "" {
			if first, dup := idSeen[id]; dup {
				v.errorf(KindDuplicate, field+".id", IntPtr(i), t.ID,
					"teacher id %q duplicates teacher #%d", id, first+1)
			} else {
				idSeen[id] = i
			}
		}

		if key == "" {
			v.errorf(KindMissingField, field+".name", IntPtr(i), t.Name, "teacher name is required")
		} else if first, dup := firstSeen[key]; dup {
			v.errorf(KindDuplicate, field+".name", IntPtr(i), t.Name,
				"teacher %q duplicates teacher #%d", strings.TrimSpace(t.Name), first+1)
		} else {
			firstSeen[key] = i
		}

		if t.MaxLecturesPerDay != nil {
			n := *t.MaxLecturesPerDay
			if n < MinLecturesPerDay || n > MaxLecturesPerDay {
				v.warnf(KindUnusualValue, field+".maxLecturesPerDay", IntPtr(i), fmt.Sprint(n),
					"max lectures per day %d is outside %d-%d", n, MinLecturesPerDay, MaxLecturesPerDay)
			}
		}
	}
}

func (v *snapshotValidator) checkSubjects() {
	firstSeen := make(map[string]int, len(v.snap.Subjects))
	idSeen := make(map[string]int, len(v.snap.Subjects))

	for i, s := range v.snap.Subjects {
		field := fmt.Sprintf("subjects[%d]", i)
		name := NormalizeName(s.Name)
		year := NormalizeYear(s.Year)

		if id := strings.TrimSpace(s.ID); id != "" {
			if first, dup := idSeen[id]; dup {
				v.errorf(KindDuplicate, field+".id", IntPtr(i), s.ID,
					"subject id %q duplicates subject #%d", id, first+1)
			} else {
				idSeen[id] = i
			}
		}

		if name == "" {
			v.errorf(KindMissingField, field+".name", IntPtr(i), s.Name, "subject name is required")
		}
		if year == "" {
			v.errorf(KindMissingField, field+".year", IntPtr(i), s.Year,
				"subject %q has no academic year", strings.TrimSpace(s.Name))
		}
		if name != "" && year != "" {
			key := SubjectKey(s)
			if first, dup := firstSeen[key]; dup {
				v.errorf(KindDuplicate, field+".name", IntPtr(i), s.Name,
					"subject %q (%s) duplicates subject #%d", strings.TrimSpace(s.Name), year, first+1)
			} else {
				firstSeen[key] = i
			}
		}

		if s.WeeklyLectures == nil {
			v.warnf(KindMissingOptional, field+".weeklyLectures", IntPtr(i), "",
				"subject %q has no weekly lecture count; a default will be used", strings.TrimSpace(s.Name))
		} else {
			n := *s.WeeklyLectures
			if n < MinWeeklyLectures || n > MaxWeeklyLectures {
				v.warnf(KindUnusualValue, field+".weeklyLectures", IntPtr(i), fmt.Sprint(n),
					"weekly lectures %d is outside %d-%d", n, MinWeeklyLectures, MaxWeeklyLectures)
			}
			if s.IsPractical && n < MinPracticalLectures {
				v.warnf(KindPracticalWarning, field+".weeklyLectures", IntPtr(i), fmt.Sprint(n),
					"practical subject %q has %d weekly lecture(s); block sessions usually need at least %d",
					strings.TrimSpace(s.Name), n, MinPracticalLectures)
			}
		}
	}
}

func (v *snapshotValidator) checkMappings() {
	v.assigned = make([]int, len(v.snap.Teachers))
	subjectMapped := make([]bool, len(v.snap.Subjects))

	for i, m := range v.snap.Mappings {
		field := fmt.Sprintf("teacherSubjectMap[%d]", i)

		ti, teacherOK := v.res.teacher(m)
		if !teacherOK {
			v.errorf(KindInvalidReference, field+".teacherId", IntPtr(i), describeTeacherRef(m),
				"mapping #%d refers to unknown teacher %s", i+1, describeTeacherRef(m))
		}
		si, subjectOK := v.res.subject(m)
		if !subjectOK {
			v.errorf(KindInvalidReference, field+".subjectId", IntPtr(i), describeSubjectRef(m),
				"mapping #%d refers to unknown subject %s", i+1, describeSubjectRef(m))
		}

		if teacherOK && subjectOK {
			v.assigned[ti]++
			subjectMapped[si] = true
		}
	}

	for i, s := range v.snap.Subjects {
		if !subjectMapped[i] {
			v.errorf(KindUnmappedSubject, fmt.Sprintf("subjects[%d]", i), IntPtr(i), s.Name,
				"subject %q has no teacher assigned", strings.TrimSpace(s.Name))
		}
	}
	for i, t := range v.snap.Teachers {
		if v.assigned[i] == 0 {
			v.warnf(KindUnmappedTeacher, fmt.Sprintf("teachers[%d]", i), IntPtr(i), t.Name,
				"teacher %q is not assigned to any subject", strings.TrimSpace(t.Name))
		}
	}
}

// checkWorkload must run after checkMappings.
func (v *snapshotValidator) checkWorkload() {
	for i, t := range v.snap.Teachers {
		count := v.assigned[i]
		limit := DefaultMaxLecturesPerDay
		if t.MaxLecturesPerDay != nil {
			limit = *t.MaxLecturesPerDay
		}
		field := fmt.Sprintf("teachers[%d]", i)

		if count > limit {
			v.warnf(KindHighWorkload, field, IntPtr(i), fmt.Sprint(count),
				"teacher %q has %d subjects, more than the %d lectures per day allowed",
				strings.TrimSpace(t.Name), count, limit)
		}
		if count > ExtremeWorkload {
			v.warnf(KindExtremeWorkload, field, IntPtr(i), fmt.Sprint(count),
				"teacher %q has %d subjects (more than %d)", strings.TrimSpace(t.Name), count, ExtremeWorkload)
		}
	}
}

func (v *snapshotValidator) checkYears(b *Branch) {
	known := make(map[string]bool, len(b.AcademicYears))
	for _, y := range b.AcademicYears {
		known[NormalizeYear(y)] = true
	}
	for i, s := range v.snap.Subjects {
		year := NormalizeYear(s.Year)
		if year == "" || known[year] {
			continue
		}
		v.warnf(KindUnknownYear, fmt.Sprintf("subjects[%d].year", i), IntPtr(i), s.Year,
			"subject %q uses year %q which branch %q does not define",
			strings.TrimSpace(s.Name), year, b.Name)
	}
}

func describeTeacherRef(m Mapping) string {
	if id := strings.TrimSpace(m.TeacherID); id != "" {
		return fmt.Sprintf("id %q", id)
	}
	if name := strings.TrimSpace(m.TeacherName); name != "" {
		return fmt.Sprintf("%q", name)
	}
	return "(none)"
}

func describeSubjectRef(m Mapping) string {
	if id := strings.TrimSpace(m.SubjectID); id != "" {
		return fmt.Sprintf("id %q", id)
	}
	if name := strings.TrimSpace(m.SubjectName); name != "" {
		if year := NormalizeYear(m.SubjectYear); year != "" {
			return fmt.Sprintf("%q (%s)", name, year)
		}
		return fmt.Sprintf("%q", name)
	}
	return "(none)"
}
