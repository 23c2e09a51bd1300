package guestlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSkipsHeader(t *testing.T) {
	t.Parallel()

	input := "Name,Status\nJane Doe,Going\nBob,Not Going\n\"Smith, Anna\",Maybe,extra\n"
	records, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Record{
		{Line: 2, FacebookName: "Jane Doe", Marker: "Going"},
		{Line: 3, FacebookName: "Bob", Marker: "Not Going"},
		{Line: 4, FacebookName: "Smith, Anna", Marker: "Maybe"},
	}, records)
}

func TestReadHeaderOnly(t *testing.T) {
	t.Parallel()

	records, err := Read(strings.NewReader("Name,Status\n"))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestReadRejectsMalformedRows(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty file":     "",
		"single field":   "Name,Status\nJane Doe\n",
		"empty name":     "Name,Status\n ,Going\n",
		"unclosed quote": "Name,Status\n\"Jane Doe,Going\n",
	}
	for name, input := range cases {
		_, err := Read(strings.NewReader(input))
		require.ErrorIsf(t, err, ErrMalformedInput, "case %s", name)
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "guests.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Status\nJane Doe,Going\n"), 0o644))

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPolicyAttending(t *testing.T) {
	t.Parallel()

	going := Record{FacebookName: "Jane Doe", Marker: "Going"}
	shouting := Record{FacebookName: "Jane Doe", Marker: " GOING "}
	notGoing := Record{FacebookName: "Bob", Marker: "Not Going"}

	require.True(t, RequireGoing.Attending(going))
	require.True(t, RequireGoing.Attending(shouting))
	require.False(t, RequireGoing.Attending(notGoing))

	require.True(t, AllListed.Attending(going))
	require.True(t, AllListed.Attending(notGoing))
}
