package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGuestSplitsOnFirstSpace(t *testing.T) {
	t.Parallel()

	g := NewGuest("Jane Doe")
	require.Equal(t, "Jane", g.FirstName)
	require.Equal(t, "Doe", g.LastName)
	require.Equal(t, "Jane Doe", g.FacebookName)

	g = NewGuest("Maria de la Cruz")
	require.Equal(t, "Maria", g.FirstName)
	require.Equal(t, "de la Cruz", g.LastName)

	g = NewGuest("Bob")
	require.Equal(t, "Bob", g.FirstName)
	require.Empty(t, g.LastName)
}

func TestLunchString(t *testing.T) {
	t.Parallel()

	event := "https://facebook.com/events/1"
	l := Lunch{ID: 3, Date: mustDate(t, "2023-12-17"), FacebookEvent: &event}
	require.Equal(t, "Lunch #3 on 2023-12-17 (christmas), event: https://facebook.com/events/1", l.String())
	require.Equal(t, Christmas, l.Season())

	l = Lunch{ID: 4, Date: mustDate(t, "2024-03-31")}
	require.Equal(t, "Lunch #4 on 2024-03-31 (easter), event: -", l.String())
}
