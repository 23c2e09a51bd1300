package models

import (
	"fmt"
	"strings"
)

// Guest represents a lunch guest, identified by their Facebook name
type Guest struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	FacebookName string  `json:"facebook_name"`
	Nationality  *string `json:"nationality,omitempty"`
}

// NewGuest derives first and last name from the identity name. The first
// space-separated token is the first name, the remainder is the last name.
func NewGuest(facebookName string) Guest {
	first, last, _ := strings.Cut(facebookName, " ")
	return Guest{
		FirstName:    first,
		LastName:     last,
		FacebookName: facebookName,
	}
}

func (g Guest) String() string {
	name := strings.TrimSpace(g.FirstName + " " + g.LastName)
	if g.Nationality != nil && *g.Nationality != "" {
		return fmt.Sprintf("%s (#%d, %s)", name, g.ID, *g.Nationality)
	}
	return fmt.Sprintf("%s (#%d)", name, g.ID)
}

// Attendance records that a guest attended a lunch
type Attendance struct {
	GuestID int64 `json:"guest_id"`
	LunchID int64 `json:"lunch_id"`
}

// GuestAttendance is a guest with the number of lunches they attended
type GuestAttendance struct {
	Guest       Guest `json:"guest"`
	Attendances int   `json:"attendances"`
}
