// Package schedule places time blocks on a single 24-hour timeline in
// 15-minute steps and keeps them from overlapping.
package schedule

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	StepMinutes = 15
	StepsPerDay = 24 * 60 / StepMinutes
)

var (
	ErrOverlap     = errors.New("overlaps another task")
	ErrNotFound    = errors.New("task not found")
	ErrInvalid     = errors.New("invalid task")
	ErrUnconfirmed = errors.New("delete not confirmed")
)

// Task is one block on the timeline. It covers the half-open step interval
// [StartIndex, StartIndex+DurationSteps).
type Task struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	StartIndex    int    `json:"startIndex"`
	DurationSteps int    `json:"durationSteps"`
}

// End is the first step after the task.
func (t Task) End() int {
	return t.StartIndex + t.DurationSteps
}

// Overlaps reports whether the two half-open intervals intersect.
func (t Task) Overlaps(o Task) bool {
	return !(t.End() <= o.StartIndex || t.StartIndex >= o.End())
}

func (t Task) String() string {
	return fmt.Sprintf("#%d %s-%s %s", t.ID, FormatClock(t.StartIndex*StepMinutes), FormatClock(t.End()*StepMinutes), t.Title)
}

// Scheduler owns the flat list of timeline tasks.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []Task
	nextID int
}

// New creates a scheduler over a copy of tasks. Entries with a bad id,
// empty title or out-of-day interval are dropped, as is any entry that
// overlaps one accepted before it.
func New(tasks []Task) *Scheduler {
	s := &Scheduler{nextID: 1}
	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if err := validate(t); err != nil {
			log.Printf("schedule: dropped stored task %d: %v", t.ID, err)
			continue
		}
		if seen[t.ID] {
			log.Printf("schedule: dropped stored task %d: duplicate id", t.ID)
			continue
		}
		if s.hasOverlap(t, 0) {
			log.Printf("schedule: dropped stored task %d: %v", t.ID, ErrOverlap)
			continue
		}
		seen[t.ID] = true
		s.tasks = append(s.tasks, t)
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return s
}

func validate(t Task) error {
	switch {
	case t.ID <= 0:
		return fmt.Errorf("%w: id %d", ErrInvalid, t.ID)
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: empty title", ErrInvalid)
	case t.StartIndex < 0 || t.StartIndex >= StepsPerDay:
		return fmt.Errorf("%w: start step %d", ErrInvalid, t.StartIndex)
	case t.DurationSteps < 1 || t.End() > StepsPerDay:
		return fmt.Errorf("%w: duration %d from step %d", ErrInvalid, t.DurationSteps, t.StartIndex)
	}
	return nil
}

// Tasks returns a copy of the tasks ordered by start.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Task(nil), s.tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartIndex < out[j].StartIndex })
	return out
}

// Get returns the task with the given id.
func (s *Scheduler) Get(id int) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return Task{}, false
	}
	return s.tasks[i], true
}

// Create adds a task. Minutes are floored to whole steps; a duration under
// one step becomes one step and a duration running past midnight is cut at
// the end of the day.
func (s *Scheduler) Create(title string, startMinutes, durationMinutes int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: empty title", ErrInvalid)
	}
	start := floorDiv(startMinutes, StepMinutes)
	if start < 0 || start >= StepsPerDay {
		return Task{}, fmt.Errorf("%w: start %s is outside the day", ErrInvalid, FormatClock(startMinutes))
	}
	candidate := Task{
		Title:         title,
		StartIndex:    start,
		DurationSteps: clampDuration(start, floorDiv(durationMinutes, StepMinutes)),
	}
	if s.hasOverlap(candidate, 0) {
		log.Printf("schedule: rejected %q at %s: %v", title, FormatClock(start*StepMinutes), ErrOverlap)
		return Task{}, ErrOverlap
	}

	candidate.ID = s.nextID
	s.nextID++
	s.tasks = append(s.tasks, candidate)
	return candidate, nil
}

// HasOverlap reports whether candidate intersects any task other than
// excludeID. Ids start at 1, so 0 excludes nothing.
func (s *Scheduler) HasOverlap(candidate Task, excludeID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOverlap(candidate, excludeID)
}

func (s *Scheduler) hasOverlap(candidate Task, excludeID int) bool {
	for _, t := range s.tasks {
		if t.ID == excludeID {
			continue
		}
		if candidate.Overlaps(t) {
			return true
		}
	}
	return false
}

// Move places the task at a new start step, keeping its duration. On
// overlap the task keeps its previous position.
func (s *Scheduler) Move(id, newStartIndex int) (Task, error) {
	return s.propose(id, func(t *Task) {
		t.StartIndex = clamp(newStartIndex, 0, StepsPerDay-t.DurationSteps)
	})
}

// MoveToMinutes moves the task to the step nearest to minutes.
func (s *Scheduler) MoveToMinutes(id, minutes int) (Task, error) {
	return s.Move(id, Snap(minutes))
}

// Resize changes the duration, keeping the start. The duration is at least
// one step and never runs past the end of the day.
func (s *Scheduler) Resize(id, newDurationSteps int) (Task, error) {
	return s.propose(id, func(t *Task) {
		t.DurationSteps = clampDuration(t.StartIndex, newDurationSteps)
	})
}

// ResizeToMinutes resizes the task to the step count nearest to minutes.
func (s *Scheduler) ResizeToMinutes(id, minutes int) (Task, error) {
	return s.Resize(id, Snap(minutes))
}

// EditTitle renames a task.
func (s *Scheduler) EditTitle(id int, title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: empty title", ErrInvalid)
	}
	return s.propose(id, func(t *Task) { t.Title = title })
}

// Delete removes a task. The caller must pass confirmed=true.
func (s *Scheduler) Delete(id int, confirmed bool) error {
	if !confirmed {
		return ErrUnconfirmed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		log.Printf("schedule: delete: task %d not found", id)
		return ErrNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// propose applies change to a copy of the task and commits it only when it
// does not overlap another task.
func (s *Scheduler) propose(id int, change func(*Task)) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		log.Printf("schedule: task %d not found", id)
		return Task{}, ErrNotFound
	}
	candidate := s.tasks[i]
	change(&candidate)
	if s.hasOverlap(candidate, id) {
		log.Printf("schedule: reverted task %d: %v", id, ErrOverlap)
		return s.tasks[i], ErrOverlap
	}
	s.tasks[i] = candidate
	return candidate, nil
}

func (s *Scheduler) index(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Snap rounds minutes to the nearest whole step.
func Snap(minutes int) int {
	return int(math.Round(float64(minutes) / StepMinutes))
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func clampDuration(start, steps int) int {
	return clamp(steps, 1, StepsPerDay-start)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
