package persist

import (
	"log"

	"github.com/harrisonrobin/tasktree/pkg/local"
	"github.com/harrisonrobin/tasktree/pkg/schedule"
)

// HoursKey is the local store key holding the day schedule.
const HoursKey = "hours"

// LoadSchedule reads the schedule from the local store. Unreadable data is
// logged and treated as an empty day.
func LoadSchedule(store *local.Store) []schedule.Task {
	var tasks []schedule.Task
	if _, err := store.Get(HoursKey, &tasks); err != nil {
		log.Printf("persist: discarding unreadable schedule: %v", err)
		return nil
	}
	return tasks
}

// SaveSchedule writes the schedule to the local store.
func SaveSchedule(store *local.Store, tasks []schedule.Task) error {
	if tasks == nil {
		tasks = []schedule.Task{}
	}
	return store.Set(HoursKey, tasks)
}
