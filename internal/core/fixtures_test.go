package core

import (
	"context"
	"errors"
	"sync"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	sets    int
	removes map[string]int
	failGet error
	failSet error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string), removes: make(map[string]int)}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", false, m.failGet
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.removes[key]++
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memStore) removeCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removes[key]
}

var errStoreDown = errors.New("store: connection refused")

// branchList is a fixed BranchSource.
type branchList []Branch

func (b branchList) Branch(id string) (*Branch, bool) {
	for i := range b {
		if b[i].ID == id {
			br := b[i]
			return &br, true
		}
	}
	return nil, false
}

func (b branchList) Branches() []Branch { return append([]Branch(nil), b...) }

func readyBranch() Branch {
	return Branch{
		ID:            "cse",
		Name:          "Computer Engineering",
		AcademicYears: []string{"SE", "TE", "BE"},
		Divisions:     map[string][]string{"SE": {"A", "B"}},
		WorkingDays:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		SlotsPerDay:   8,
	}
}

// validSnapshot has one teacher mapped to one subject and no findings.
func validSnapshot() Snapshot {
	return Snapshot{
		Teachers: []Teacher{{ID: "t1", Name: "Asha Rao", MaxLecturesPerDay: IntPtr(4)}},
		Subjects: []Subject{{ID: "s1", Name: "Data Structures", Year: "SE", WeeklyLectures: IntPtr(4)}},
		Mappings: []Mapping{{TeacherID: "t1", SubjectID: "s1"}},
	}
}

func teacherBatch(names ...string) Batch {
	b := Batch{Target: CollectionTeachers, Channel: ChannelManual}
	for _, n := range names {
		b.Teachers = append(b.Teachers, Teacher{Name: n})
	}
	return b
}
