package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lunchbook/internal/config"
	"lunchbook/internal/handler"
	"lunchbook/internal/storage"
)

type testApp struct {
	db  string
	dir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	a := &testApp{db: filepath.Join(dir, "lunch.sqlite"), dir: dir}
	_, err := a.run(t, "", "init-db")
	require.NoError(t, err)
	return a
}

func (a *testApp) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cfg := &config.Config{Database: a.db, LogLevel: "error"}
	app := newApp(cfg, strings.NewReader(stdin), &out, &errOut)
	err := app.Run(append([]string{"lunchbook"}, args...))
	return out.String(), err
}

func (a *testApp) writeGuestList(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(a.dir, "guests.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitAndCheckDatabase(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	out, err := a.run(t, "", "check-db")
	require.NoError(t, err)
	require.Contains(t, out, "is valid.")

	_, err = a.run(t, "", "init-db")
	require.ErrorIs(t, err, storage.ErrSchemaExists)
	require.Equal(t, ExitCodeConflict, exitCode(err))

	_, err = a.run(t, "", "--database", filepath.Join(a.dir, "other.sqlite"), "check-db")
	require.ErrorIs(t, err, storage.ErrSchemaNotFound)
	require.Equal(t, ExitCodeNotFound, exitCode(err))
}

func TestImportAndListGuests(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	out, err := a.run(t, "", "add-lunch", "2023-04-09", "https://facebook.com/events/7")
	require.NoError(t, err)
	require.Contains(t, out, "Successfully added:")
	require.Contains(t, out, "2023-04-09 (easter)")

	path := a.writeGuestList(t, "Name,Status\nJane Doe,Going\nBob,Not Going\n")
	out, err = a.run(t, "", "import-guest-list", "easter", "2023", path)
	require.NoError(t, err)
	require.Contains(t, out, "New guests: 2, attendances added: 1, already recorded: 0, not attending: 1")

	out, err = a.run(t, "", "list-guests", "Easter", "2023")
	require.NoError(t, err)
	require.Contains(t, out, "A total of 1 guests attended:")
	require.Contains(t, out, "Jane Doe (#1)")
	require.NotContains(t, out, "Bob")

	out, err = a.run(t, "", "import_guest_list", "--all-listed", "easter", "2023", path)
	require.NoError(t, err)
	require.Contains(t, out, "New guests: 0, attendances added: 1, already recorded: 1, not attending: 0")

	out, err = a.run(t, "", "list-guests-by-attendance")
	require.NoError(t, err)
	require.Equal(t, "Listing guests by attendance in descending order:\nBob (#2): 1\nJane Doe (#1): 1\n", out)
}

func TestListLunches(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	for _, d := range []string{"2023-12-17", "2023-04-09"} {
		_, err := a.run(t, "", "add-lunch", d)
		require.NoError(t, err)
	}

	out, err := a.run(t, "", "list-lunches")
	require.NoError(t, err)
	require.Equal(t,
		"Listing all registered lunches in chronological order...\n"+
			"Lunch #2 on 2023-04-09 (easter), event: -\n"+
			"Lunch #1 on 2023-12-17 (christmas), event: -\n",
		out)
}

func TestAddLunchErrors(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)

	_, err := a.run(t, "", "add-lunch", "2023-4-9")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, err = a.run(t, "", "add-lunch")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, err = a.run(t, "", "add-lunch", "2023-04-09")
	require.NoError(t, err)
	_, err = a.run(t, "", "add-lunch", "2023-04-09")
	require.ErrorIs(t, err, handler.ErrDuplicateLunch)
	require.Equal(t, ExitCodeConflict, exitCode(err))
}

func TestMalformedInputIsRejectedBeforeStorage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := &testApp{db: filepath.Join(dir, "never-created.sqlite"), dir: dir}

	_, err := a.run(t, "", "list-guests", "halloween", "2023")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, err = a.run(t, "", "list-guests", "easter", "last-year")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	path := a.writeGuestList(t, "Name,Status\nJane Doe\n")
	_, err = a.run(t, "", "import-guest-list", "easter", "2023", path)
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, statErr := os.Stat(a.db)
	require.True(t, errors.Is(statErr, os.ErrNotExist))

	_, err = a.run(t, "", "list-lunches")
	require.ErrorIs(t, err, storage.ErrConnection)
	require.Equal(t, ExitCodeStorage, exitCode(err))
}

func TestListGuestsUnknownLunch(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	_, err := a.run(t, "", "list-guests", "christmas", "2023")
	require.ErrorIs(t, err, handler.ErrLunchNotFound)
	require.Equal(t, ExitCodeNotFound, exitCode(err))
}

func TestDeleteAttendancesPrompt(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	_, err := a.run(t, "", "add-lunch", "2023-04-09")
	require.NoError(t, err)
	path := a.writeGuestList(t, "Name,Status\nJane Doe,Going\nJohn Doe,Going\n")
	_, err = a.run(t, "", "import-guest-list", "easter", "2023", path)
	require.NoError(t, err)

	out, err := a.run(t, "n\n", "delete-attendances", "easter", "2023")
	require.NoError(t, err)
	require.Contains(t, out, "Are you sure you want to remove 2 attendances? [y/N] ")
	require.Contains(t, out, "Action cancelled.")

	out, err = a.run(t, "", "list-guests", "easter", "2023")
	require.NoError(t, err)
	require.Contains(t, out, "A total of 2 guests attended:")

	out, err = a.run(t, "y\n", "delete-attendances", "easter", "2023")
	require.NoError(t, err)
	require.Contains(t, out, "Successfully removed 2 attendances.")

	out, err = a.run(t, "", "list-guests", "easter", "2023")
	require.NoError(t, err)
	require.Contains(t, out, "A total of 0 guests attended:")
}

func TestDeleteAttendancesYesFlag(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	_, err := a.run(t, "", "add-lunch", "2023-12-17")
	require.NoError(t, err)
	path := a.writeGuestList(t, "Name,Status\nJane Doe,Going\n")
	_, err = a.run(t, "", "import-guest-list", "christmas", "2023", path)
	require.NoError(t, err)

	out, err := a.run(t, "", "delete-attendances", "--yes", "christmas", "2023")
	require.NoError(t, err)
	require.NotContains(t, out, "[y/N]")
	require.Contains(t, out, "Successfully removed 1 attendances.")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, ExitCodeSuccess, exitCode(nil))
	require.Equal(t, ExitCodeGeneric, exitCode(errors.New("boom")))
	require.Equal(t, ExitCodeUsage, exitCode(usageErrorf("bad")))
	require.Equal(t, ExitCodeConflict, exitCode(handler.ErrAmbiguousLunch))
	require.Equal(t, ExitCodeNotFound, exitCode(os.ErrNotExist))
}

func TestInvalidLogLevelWarns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out, errOut bytes.Buffer
	cfg := &config.Config{Database: filepath.Join(dir, "lunch.sqlite"), LogLevel: "loud"}
	app := newApp(cfg, strings.NewReader(""), &out, &errOut)

	require.NoError(t, app.Run([]string{"lunchbook", "init-db"}))
	require.Contains(t, errOut.String(), "Falling back to info logging")
	require.Contains(t, errOut.String(), "invalid LOG_LEVEL")
	require.Contains(t, errOut.String(), "loud")
	// Info stays enabled after the fallback.
	require.Contains(t, errOut.String(), "Database created")
}
