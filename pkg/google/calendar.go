// Package google exports the day schedule to a Google Calendar.
package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/tasktree/pkg/index"
	"github.com/harrisonrobin/tasktree/pkg/model"
	"github.com/harrisonrobin/tasktree/pkg/schedule"
)

const (
	// BlockProperty is the private extended property naming the block.
	BlockProperty = "tasktree_block"
	// DayProperty is the private extended property naming the day.
	DayProperty = "tasktree_day"
)

// CalendarClient is a Google Calendar API client bound to one calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx}
}

// BlockKey identifies a schedule block on a given day.
func BlockKey(day time.Time, id int) string {
	return fmt.Sprintf("%s/%d", day.Format(model.DateLayout), id)
}

// ExportDay mirrors the blocks of one day into the calendar. Events left
// over from blocks that no longer exist are deleted.
func (c *CalendarClient) ExportDay(ctx context.Context, day time.Time, tasks []schedule.Task) ([]*calendar.Event, error) {
	keep := make(map[string]bool, len(tasks))
	var events []*calendar.Event
	for _, t := range tasks {
		ev, err := c.SyncEvent(ctx, day, t)
		if err != nil {
			return events, fmt.Errorf("could not export %s: %w", t.Title, err)
		}
		keep[BlockKey(day, t.ID)] = true
		events = append(events, ev)
	}

	stale, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", DayProperty, day.Format(model.DateLayout))).
		Context(ctx).
		Do()
	if err != nil {
		return events, fmt.Errorf("unable to list exported events: %w", err)
	}
	for _, ev := range stale.Items {
		key := blockOf(ev)
		if keep[key] {
			continue
		}
		if err := c.DeleteEvent(ctx, ev.Id); err != nil {
			log.Printf("Warning: could not delete stale event %s: %v", ev.Id, err)
			continue
		}
		if c.index != nil && key != "" {
			c.index.Remove(key)
		}
	}
	return events, nil
}

// SyncEvent creates the event for one block or patches the existing one
// when it differs.
func (c *CalendarClient) SyncEvent(ctx context.Context, day time.Time, task schedule.Task) (*calendar.Event, error) {
	key := BlockKey(day, task.ID)
	event := ConvertToEvent(day, task)

	var existing *calendar.Event
	if c.index != nil {
		if eventID := c.index.Get(key); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && ev.Status != "cancelled" {
				existing = ev
			}
		}
	}
	if existing == nil {
		ev, err := c.GetEventByBlock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("error searching for event: %w", err)
		}
		existing = ev
	}

	if existing != nil {
		patch, err := EventNeedsUpdate(existing, event)
		if err != nil {
			return nil, fmt.Errorf("could not compare block with its calendar event: %w", err)
		}
		if patch == nil {
			c.remember(key, existing.Id)
			return existing, nil
		}
		updated, err := c.srv.Events.Patch(c.calendarID, existing.Id, patch).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		c.remember(key, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	c.remember(key, created.Id)
	return created, nil
}

// DeleteEvent deletes an event; one already gone counts as deleted.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	return err
}

// GetEventByBlock searches for the event carrying the block key.
func (c *CalendarClient) GetEventByBlock(ctx context.Context, key string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", BlockProperty, key)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func (c *CalendarClient) remember(key, eventID string) {
	if c.index != nil {
		c.index.Set(key, eventID)
	}
}

// ConvertToEvent places a block on day in day's location.
func ConvertToEvent(day time.Time, task schedule.Task) *calendar.Event {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	start := midnight.Add(time.Duration(task.StartIndex*schedule.StepMinutes) * time.Minute)
	end := midnight.Add(time.Duration(task.End()*schedule.StepMinutes) * time.Minute)

	return &calendar.Event{
		Summary: task.Title,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				BlockProperty: BlockKey(day, task.ID),
				DayProperty:   day.Format(model.DateLayout),
			},
		},
	}
}

// EventNeedsUpdate returns a patch carrying the fields of target that
// differ from existing, or nil when they match.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}

	same, err := sameTime(existing.Start, target.Start)
	if err != nil {
		return nil, err
	}
	sameEnd, err := sameTime(existing.End, target.End)
	if err != nil {
		return nil, err
	}
	if !same || !sameEnd {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if existing.ExtendedProperties == nil || existing.ExtendedProperties.Private[BlockProperty] != target.ExtendedProperties.Private[BlockProperty] {
		patch.ExtendedProperties = target.ExtendedProperties
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

func sameTime(a, b *calendar.EventDateTime) (bool, error) {
	if a == nil || b == nil || a.DateTime == "" {
		return false, nil
	}
	ta, err := time.Parse(time.RFC3339, a.DateTime)
	if err != nil {
		return false, err
	}
	tb, err := time.Parse(time.RFC3339, b.DateTime)
	if err != nil {
		return false, err
	}
	return ta.Equal(tb), nil
}

func blockOf(ev *calendar.Event) string {
	if ev.ExtendedProperties == nil {
		return ""
	}
	return ev.ExtendedProperties.Private[BlockProperty]
}
