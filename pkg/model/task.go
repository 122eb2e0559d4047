package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for revisit dates.
const DateLayout = "2006-01-02"

// Flag is one of the five priority flags a task can carry.
type Flag string

const (
	FlagFire  Flag = "fire"
	FlagFast  Flag = "fast"
	FlagFlow  Flag = "flow"
	FlagFear  Flag = "fear"
	FlagFirst Flag = "first"
)

// Flags lists every priority flag in column order.
var Flags = []Flag{FlagFire, FlagFast, FlagFlow, FlagFear, FlagFirst}

// ParseFlag returns the Flag named by s.
func ParseFlag(s string) (Flag, error) {
	f := Flag(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Flags {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown flag %q", s)
}

// Weight is the contribution of the flag to a task's priority score.
func (f Flag) Weight() int {
	switch f {
	case FlagFast:
		return 50
	case FlagFirst:
		return 40
	case FlagFire:
		return 30
	case FlagFear:
		return 20
	case FlagFlow:
		return 10
	}
	return 0
}

// TaskNode is a task or section in the task tree.
type TaskNode struct {
	ID            string      `json:"id"`
	Content       string      `json:"content"`
	IsSection     bool        `json:"isSection"`
	Completed     bool        `json:"completed"`
	ParentID      string      `json:"parentId,omitempty"`
	Children      []*TaskNode `json:"children"`
	RevisitDate   string      `json:"revisitDate,omitempty"`
	Fire          bool        `json:"fire"`
	Fast          bool        `json:"fast"`
	Flow          bool        `json:"flow"`
	Fear          bool        `json:"fear"`
	First         bool        `json:"first"`
	TimeEstimate  float64     `json:"timeEstimate,omitempty"`
	Overview      string      `json:"overview,omitempty"`
	Details       string      `json:"details,omitempty"`
	ScheduledTime string      `json:"scheduledTime,omitempty"`
}

// MarshalJSON always writes children as a list, never null.
func (n TaskNode) MarshalJSON() ([]byte, error) {
	type plain TaskNode
	p := plain(n)
	if p.Children == nil {
		p.Children = []*TaskNode{}
	}
	return json.Marshal(p)
}

// Flag reports whether f is set on the node.
func (n *TaskNode) Flag(f Flag) bool {
	switch f {
	case FlagFire:
		return n.Fire
	case FlagFast:
		return n.Fast
	case FlagFlow:
		return n.Flow
	case FlagFear:
		return n.Fear
	case FlagFirst:
		return n.First
	}
	return false
}

// SetFlag sets f to v on the node.
func (n *TaskNode) SetFlag(f Flag, v bool) {
	switch f {
	case FlagFire:
		n.Fire = v
	case FlagFast:
		n.Fast = v
	case FlagFlow:
		n.Flow = v
	case FlagFear:
		n.Fear = v
	case FlagFirst:
		n.First = v
	}
}

// ClearFlags unsets every priority flag.
func (n *TaskNode) ClearFlags() {
	for _, f := range Flags {
		n.SetFlag(f, false)
	}
}

// Score is the weighted sum of the active flags.
func (n *TaskNode) Score() int {
	score := 0
	for _, f := range Flags {
		if n.Flag(f) {
			score += f.Weight()
		}
	}
	return score
}

// Revisit parses the date component of RevisitDate. Values carrying a time
// component ("2025-07-12T09:00:00Z") are truncated to their date.
func (n *TaskNode) Revisit() (time.Time, bool) {
	return ParseDate(n.RevisitDate)
}

// ParseDate parses the leading YYYY-MM-DD of s.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy of the node and its subtree.
func (n *TaskNode) Clone() *TaskNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Children = CloneTree(n.Children)
	return &c
}

// CloneTree deep copies a list of nodes.
func CloneTree(nodes []*TaskNode) []*TaskNode {
	out := make([]*TaskNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}

// TaskPatch is a partial update. Nil fields are left untouched; a nil
// Children keeps the existing subtree.
type TaskPatch struct {
	Content       *string     `json:"content,omitempty"`
	IsSection     *bool       `json:"isSection,omitempty"`
	Completed     *bool       `json:"completed,omitempty"`
	ParentID      *string     `json:"parentId,omitempty"`
	Children      []*TaskNode `json:"children,omitempty"`
	RevisitDate   *string     `json:"revisitDate,omitempty"`
	Fire          *bool       `json:"fire,omitempty"`
	Fast          *bool       `json:"fast,omitempty"`
	Flow          *bool       `json:"flow,omitempty"`
	Fear          *bool       `json:"fear,omitempty"`
	First         *bool       `json:"first,omitempty"`
	TimeEstimate  *float64    `json:"timeEstimate,omitempty"`
	Overview      *string     `json:"overview,omitempty"`
	Details       *string     `json:"details,omitempty"`
	ScheduledTime *string     `json:"scheduledTime,omitempty"`
}

// Apply merges the patch into n.
func (p TaskPatch) Apply(n *TaskNode) {
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.IsSection != nil {
		n.IsSection = *p.IsSection
	}
	if p.Completed != nil {
		n.Completed = *p.Completed
	}
	if p.ParentID != nil {
		n.ParentID = *p.ParentID
	}
	if p.Children != nil {
		n.Children = p.Children
	}
	if p.RevisitDate != nil {
		n.RevisitDate = *p.RevisitDate
	}
	if p.Fire != nil {
		n.Fire = *p.Fire
	}
	if p.Fast != nil {
		n.Fast = *p.Fast
	}
	if p.Flow != nil {
		n.Flow = *p.Flow
	}
	if p.Fear != nil {
		n.Fear = *p.Fear
	}
	if p.First != nil {
		n.First = *p.First
	}
	if p.TimeEstimate != nil && *p.TimeEstimate >= 0 {
		n.TimeEstimate = *p.TimeEstimate
	}
	if p.Overview != nil {
		n.Overview = *p.Overview
	}
	if p.Details != nil {
		n.Details = *p.Details
	}
	if p.ScheduledTime != nil {
		n.ScheduledTime = *p.ScheduledTime
	}
	if n.IsSection {
		n.ClearFlags()
		n.RevisitDate = ""
	}
}

// PatchFrom builds a patch carrying every field of n except Children.
func PatchFrom(n *TaskNode) TaskPatch {
	return TaskPatch{
		Content:       &n.Content,
		IsSection:     &n.IsSection,
		Completed:     &n.Completed,
		ParentID:      &n.ParentID,
		RevisitDate:   &n.RevisitDate,
		Fire:          &n.Fire,
		Fast:          &n.Fast,
		Flow:          &n.Flow,
		Fear:          &n.Fear,
		First:         &n.First,
		TimeEstimate:  &n.TimeEstimate,
		Overview:      &n.Overview,
		Details:       &n.Details,
		ScheduledTime: &n.ScheduledTime,
	}
}

// Criterion selects which tasks a filter shows.
type Criterion string

const (
	FilterAll      Criterion = "all"
	FilterToday    Criterion = "today"
	FilterTomorrow Criterion = "tomorrow"
	FilterTriage   Criterion = "triage"
)

// ParseCriterion returns the Criterion named by s; empty means all.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterTomorrow, FilterTriage:
		return c, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// ErrNotFound is returned by backends when a task id does not exist.
var ErrNotFound = errors.New("task not found")
