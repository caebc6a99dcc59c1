// Package task holds the in-process registry of batch tasks: status,
// progress, per-file records and archive paths, keyed by task id for the
// life of the process.
package task

import (
	"sort"
	"sync"
	"time"

	"github.com/liliang-cn/docbatch/internal/domain"
	"github.com/liliang-cn/docbatch/internal/storage"
)

// State is the mutable record of one task. Mutations go through
// Registry.Update so the per-task lock discipline stays in one place.
type State struct {
	TaskID      string
	Status      domain.TaskStatus
	CreatedAt   time.Time
	CompletedAt *time.Time

	Dirs    storage.TaskDirs
	Results []*domain.FileResult

	Progress       domain.Progress
	PureTextFiles  []domain.PureTextEntry
	RichMediaFiles []domain.RichMediaEntry
	Downloads      map[domain.Category]string
	DedupStats     domain.DedupStats
	Message        string
}

// Registry maps task ids to state. Snapshots copy the mutable parts, so
// readers never observe a task mid-update.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*State)}
}

// Create registers a new processing task.
func (r *Registry) Create(taskID string, total int, dirs storage.TaskDirs) *State {
	state := &State{
		TaskID:    taskID,
		Status:    domain.StatusProcessing,
		CreatedAt: time.Now(),
		Dirs:      dirs,
		Downloads: make(map[domain.Category]string),
		Progress:  domain.Progress{Total: total},
	}

	r.mu.Lock()
	r.tasks[taskID] = state
	r.mu.Unlock()
	return state
}

// Update applies fn to the task state under the registry lock.
func (r *Registry) Update(taskID string, fn func(*State)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	fn(state)
	return nil
}

// Dirs returns the directory set of a task.
func (r *Registry) Dirs(taskID string) (storage.TaskDirs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.tasks[taskID]
	if !ok {
		return storage.TaskDirs{}, domain.ErrTaskNotFound
	}
	return state.Dirs, nil
}

// Snapshot returns a copy of the externally visible task state.
func (r *Registry) Snapshot(taskID string) (domain.TaskSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.tasks[taskID]
	if !ok {
		return domain.TaskSnapshot{}, domain.ErrTaskNotFound
	}

	snap := domain.TaskSnapshot{
		TaskID:      state.TaskID,
		Status:      state.Status,
		Progress:    state.Progress,
		DedupStats:  state.DedupStats,
		Message:     state.Message,
		CreatedAt:   state.CreatedAt,
		CompletedAt: state.CompletedAt,
	}

	snap.PureTextFiles = append([]domain.PureTextEntry(nil), state.PureTextFiles...)
	snap.RichMediaFiles = append([]domain.RichMediaEntry(nil), state.RichMediaFiles...)
	snap.Downloads = make(map[domain.Category]string, len(state.Downloads))
	for category, path := range state.Downloads {
		snap.Downloads[category] = path
	}
	return snap, nil
}

// List returns every known task id, newest first.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]*State, 0, len(r.tasks))
	for _, state := range r.tasks {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].CreatedAt.After(states[j].CreatedAt)
	})

	ids := make([]string, len(states))
	for i, state := range states {
		ids[i] = state.TaskID
	}
	return ids
}
