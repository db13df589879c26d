package core

// records.go defines the canonical record shapes and the single place where
// "same record" is decided.
//
// Identity rules:
//   - Two Teachers are the same iff their normalized names are equal.
//   - Two Subjects are the same iff (normalized name, normalized year) are equal.
//   - A Mapping side refers to its entity by ID when set, otherwise by display name.
//
// None of the identity helpers mutate their inputs.

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLecturesPerDay is used for workload checks when a teacher has no limit set.
const DefaultMaxLecturesPerDay = 6

// Teacher is a person who may be assigned to subjects.
type Teacher struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	MaxLecturesPerDay *int   `json:"maxLecturesPerDay,omitempty"`
}

// Subject is a course taught in a single academic year.
type Subject struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Year           string `json:"year"`
	WeeklyLectures *int   `json:"weeklyLectures,omitempty"`
	IsPractical    bool   `json:"isPractical"`
	SessionLength  *int   `json:"sessionLength,omitempty"` // slots per session
}

// Mapping states that a teacher may teach a subject.
// Each side is referenced by ID when known, otherwise by display name.
type Mapping struct {
	TeacherID   string `json:"teacherId,omitempty"`
	SubjectID   string `json:"subjectId,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
	SubjectName string `json:"subjectName,omitempty"`
	SubjectYear string `json:"subjectYear,omitempty"`
}

// Snapshot is the full set of records at a point in time.
// Insertion order is kept for display only.
type Snapshot struct {
	Teachers []Teacher `json:"teachers"`
	Subjects []Subject `json:"subjects"`
	Mappings []Mapping `json:"teacherSubjectMap"`
}

// Counts summarizes a snapshot for logs and listings.
type Counts struct {
	Teachers int `json:"teachers"`
	Subjects int `json:"subjects"`
	Mappings int `json:"mappings"`
}

// NormalizeName trims, collapses inner whitespace, composes to NFC and
// case-folds a display name.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// A Caser carries state, so one is built per call.
	return cases.Fold().String(norm.NFC.String(s))
}

// NormalizeYear trims and upper-cases an academic-year code ("se" -> "SE").
func NormalizeYear(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// TeacherKey returns the identity key of a teacher.
func TeacherKey(t Teacher) string {
	return NormalizeName(t.Name)
}

// SubjectKey returns the identity key of a subject.
func SubjectKey(s Subject) string {
	return NormalizeName(s.Name) + "\x00" + NormalizeYear(s.Year)
}

// SameTeacher reports whether a and b are the same teacher.
func SameTeacher(a, b Teacher) bool {
	return TeacherKey(a) == TeacherKey(b)
}

// SameSubject reports whether a and b are the same subject.
func SameSubject(a, b Subject) bool {
	return SubjectKey(a) == SubjectKey(b)
}

// teacherRef is the reference key of a mapping's teacher side.
func (m Mapping) teacherRef() string {
	if id := strings.TrimSpace(m.TeacherID); id != "" {
		return "id:" + id
	}
	if name := NormalizeName(m.TeacherName); name != "" {
		return "name:" + name
	}
	return ""
}

// subjectRef is the reference key of a mapping's subject side.
func (m Mapping) subjectRef() string {
	if id := strings.TrimSpace(m.SubjectID); id != "" {
		return "id:" + id
	}
	if name := NormalizeName(m.SubjectName); name != "" {
		return "name:" + name + "\x00" + NormalizeYear(m.SubjectYear)
	}
	return ""
}

// MappingKey returns the identity key of a mapping, or "" if either side is unset.
func MappingKey(m Mapping) string {
	t, s := m.teacherRef(), m.subjectRef()
	if t == "" || s == "" {
		return ""
	}
	return t + "|" + s
}

// Counts returns the collection sizes.
func (s Snapshot) Counts() Counts {
	return Counts{
		Teachers: len(s.Teachers),
		Subjects: len(s.Subjects),
		Mappings: len(s.Mappings),
	}
}

// IsEmpty reports whether the snapshot holds no records at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Teachers) == 0 && len(s.Subjects) == 0 && len(s.Mappings) == 0
}

// HasIdentifyingContent reports whether at least one teacher or subject has a name.
// Empty scaffolding is not worth persisting or offering for restore.
func (s Snapshot) HasIdentifyingContent() bool {
	for _, t := range s.Teachers {
		if strings.TrimSpace(t.Name) != "" {
			return true
		}
	}
	for _, sub := range s.Subjects {
		if strings.TrimSpace(sub.Name) != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Teachers: make([]Teacher, len(s.Teachers)),
		Subjects: make([]Subject, len(s.Subjects)),
		Mappings: make([]Mapping, len(s.Mappings)),
	}
	for i, t := range s.Teachers {
		t.MaxLecturesPerDay = cloneInt(t.MaxLecturesPerDay)
		out.Teachers[i] = t
	}
	for i, sub := range s.Subjects {
		sub.WeeklyLectures = cloneInt(sub.WeeklyLectures)
		sub.SessionLength = cloneInt(sub.SessionLength)
		out.Subjects[i] = sub
	}
	copy(out.Mappings, s.Mappings)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v. Handy for optional record fields.
func IntPtr(v int) *int {
	return &v
}

// resolver looks up mapping sides against a snapshot.
type resolver struct {
	teacherByID   map[string]int
	teacherByName map[string]int
	subjectByID   map[string]int
	subjectByKey  map[string]int
	subjectByName map[string]int // first subject with this name in any year
}

func newResolver(s Snapshot) *resolver {
	r := &resolver{
		teacherByID:   make(map[string]int, len(s.Teachers)),
		teacherByName: make(map[string]int, len(s.Teachers)),
		subjectByID:   make(map[string]int, len(s.Subjects)),
		subjectByKey:  make(map[string]int, len(s.Subjects)),
		subjectByName: make(map[string]int, len(s.Subjects)),
	}
	for i, t := range s.Teachers {
		if id := strings.TrimSpace(t.ID); id != "" {
			if _, ok := r.teacherByID[id]; !ok {
				r.teacherByID[id] = i
			}
		}
		if key := TeacherKey(t); key != "" {
			if _, ok := r.teacherByName[key]; !ok {
				r.teacherByName[key] = i
			}
		}
	}
	for i, sub := range s.Subjects {
		if id := strings.TrimSpace(sub.ID); id != "" {
			if _, ok := r.subjectByID[id]; !ok {
				r.subjectByID[id] = i
			}
		}
		name := NormalizeName(sub.Name)
		if name == "" {
			continue
		}
		if _, ok := r.subjectByKey[SubjectKey(sub)]; !ok {
			r.subjectByKey[SubjectKey(sub)] = i
		}
		if _, ok := r.subjectByName[name]; !ok {
			r.subjectByName[name] = i
		}
	}
	return r
}

// teacher returns the index of the teacher a mapping refers to.
func (r *resolver) teacher(m Mapping) (int, bool) {
	if id := strings.TrimSpace(m.TeacherID); id != "" {
		i, ok := r.teacherByID[id]
		return i, ok
	}
	name := NormalizeName(m.TeacherName)
	if name == "" {
		return -1, false
	}
	i, ok := r.teacherByName[name]
	return i, ok
}

// subject returns the index of the subject a mapping refers to.
// A name reference without a year matches the first subject with that name.
func (r *resolver) subject(m Mapping) (int, bool) {
	if id := strings.TrimSpace(m.SubjectID); id != "" {
		i, ok := r.subjectByID[id]
		return i, ok
	}
	name := NormalizeName(m.SubjectName)
	if name == "" {
		return -1, false
	}
	if year := NormalizeYear(m.SubjectYear); year != "" {
		i, ok := r.subjectByKey[name+"\x00"+year]
		return i, ok
	}
	i, ok := r.subjectByName[name]
	return i, ok
}

// ResolveMappings returns a copy of the snapshot whose mappings carry the IDs
// of the records they refer to. Unresolvable mappings are kept as-is.
func ResolveMappings(s Snapshot) Snapshot {
	out := s.Clone()
	r := newResolver(out)
	for i, m := range out.Mappings {
		if ti, ok := r.teacher(m); ok && out.Teachers[ti].ID != "" {
			m.TeacherID = out.Teachers[ti].ID
			m.TeacherName = out.Teachers[ti].Name
		}
		if si, ok := r.subject(m); ok && out.Subjects[si].ID != "" {
			m.SubjectID = out.Subjects[si].ID
			m.SubjectName = out.Subjects[si].Name
			m.SubjectYear = out.Subjects[si].Year
		}
		out.Mappings[i] = m
	}
	return out
}
