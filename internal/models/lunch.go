package models

import (
	"fmt"
	"time"
)

// Lunch represents one community lunch
type Lunch struct {
	ID            int64     `json:"id"`
	Date          time.Time `json:"date"`
	FacebookEvent *string   `json:"facebook_event,omitempty"`
}

// Season is the derived Easter/Christmas classification of the lunch date.
func (l Lunch) Season() EventKind {
	return SeasonOf(l.Date)
}

func (l Lunch) String() string {
	event := "-"
	if l.FacebookEvent != nil && *l.FacebookEvent != "" {
		event = *l.FacebookEvent
	}
	return fmt.Sprintf("Lunch #%d on %s (%s), event: %s", l.ID, l.Date.Format(DateLayout), l.Season(), event)
}
