package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"lunchbook/internal/config"
	"lunchbook/internal/guestlist"
	"lunchbook/internal/handler"
	"lunchbook/internal/models"
	"lunchbook/internal/storage"
)

type runtime struct {
	cfg *config.Config
	in  io.Reader
	out io.Writer
	log zerolog.Logger
}

func newApp(cfg *config.Config, in io.Reader, out, errOut io.Writer) *cli.App {
	rt := &runtime{cfg: cfg, in: in, out: out, log: zerolog.Nop()}

	return &cli.App{
		Name:      "lunchbook",
		Usage:     "Track who attends the Easter and Christmas community lunches.",
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database", Value: cfg.Database, Usage: "Path or sqlite:/// URL of the lunch database."},
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug output."},
		},
		Before: func(c *cli.Context) error {
			level, levelErr := cfg.Level()
			if c.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			rt.log = zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true}).
				Level(level).
				With().Timestamp().Logger()
			if levelErr != nil {
				rt.log.Warn().Err(levelErr).Msg("Falling back to info logging")
			}
			return nil
		},
		// Errors are mapped to exit codes in main.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			initDBCommand(rt),
			checkDBCommand(rt),
			addLunchCommand(rt),
			importGuestListCommand(rt),
			listGuestsCommand(rt),
			listLunchesCommand(rt),
			listGuestsByAttendanceCommand(rt),
			deleteAttendancesCommand(rt),
		},
	}
}

func initDBCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "Create the lunch database schema.",
		Action: func(c *cli.Context) error {
			location := c.String("database")
			if err := storage.CreateSchema(c.Context, location, rt.log); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Database %q created.\n", location)
			return nil
		},
	}
}

func checkDBCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "check-db",
		Usage: "Check that the lunch database exists and has the expected schema.",
		Action: func(c *cli.Context) error {
			location := c.String("database")
			if err := storage.ValidateSchema(c.Context, location, rt.log); err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Database %q is valid.\n", location)
			return nil
		},
	}
}

func addLunchCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "add-lunch",
		Aliases:   []string{"add_lunch"},
		Usage:     "Register a lunch on a date.",
		ArgsUsage: "<YYYY-MM-DD> [facebook-event]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return usageErrorf("add-lunch expects a date and an optional Facebook event")
			}
			date, err := models.ParseDate(c.Args().Get(0))
			if err != nil {
				return err
			}
			var event *string
			if raw := strings.TrimSpace(c.Args().Get(1)); raw != "" {
				event = &raw
			}

			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				lunch, err := h.CreateLunch(ctx, date, event)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Successfully added:\n%s\n", lunch)
				return nil
			})
		},
	}
}

func importGuestListCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "import-guest-list",
		Aliases:   []string{"import_guest_list"},
		Usage:     "Import a Facebook guest list (.csv) as attendances.",
		ArgsUsage: "<easter|christmas> <year> <path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all-listed", Usage: "Count every listed guest as attending, not only those marked Going."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return usageErrorf("import-guest-list expects an event, a year and a path")
			}
			kind, year, err := parseEvent(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			records, err := guestlist.ReadFile(c.Args().Get(2))
			if err != nil {
				return err
			}
			policy := guestlist.RequireGoing
			if c.Bool("all-listed") {
				policy = guestlist.AllListed
			}

			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				report, err := h.ImportAttendance(ctx, kind, year, records, policy)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Imported guest list for:\n%s\n", report.Lunch)
				fmt.Fprintf(rt.out, "New guests: %d, attendances added: %d, already recorded: %d, not attending: %d\n",
					report.GuestsCreated, report.AttendancesAdded, report.AttendancesSkipped, report.NotAttending)
				return nil
			})
		},
	}
}

func listGuestsCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "list-guests",
		Aliases:   []string{"list_guests"},
		Usage:     "List the guests who attended a lunch.",
		ArgsUsage: "<easter|christmas> <year>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageErrorf("list-guests expects an event and a year")
			}
			kind, year, err := parseEvent(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}

			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				lunch, guests, err := h.ListAttendees(ctx, kind, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Listing guests for:\n%s\nA total of %d guests attended:\n", lunch, len(guests))
				for _, g := range guests {
					fmt.Fprintln(rt.out, g)
				}
				return nil
			})
		},
	}
}

func listLunchesCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:    "list-lunches",
		Aliases: []string{"list_lunches"},
		Usage:   "List all registered lunches in chronological order.",
		Action: func(c *cli.Context) error {
			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				lunches, err := h.ListLunches(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(rt.out, "Listing all registered lunches in chronological order...")
				for _, l := range lunches {
					fmt.Fprintln(rt.out, l)
				}
				return nil
			})
		},
	}
}

func listGuestsByAttendanceCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:    "list-guests-by-attendance",
		Aliases: []string{"list_guests_by_attendance"},
		Usage:   "List guests by number of lunches attended.",
		Action: func(c *cli.Context) error {
			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				ranking, err := h.RankGuestsByAttendance(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(rt.out, "Listing guests by attendance in descending order:")
				for _, r := range ranking {
					fmt.Fprintf(rt.out, "%s: %d\n", r.Guest, r.Attendances)
				}
				return nil
			})
		},
	}
}

func deleteAttendancesCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete-attendances",
		Aliases:   []string{"delete_attendances"},
		Usage:     "Remove all attendances of a lunch.",
		ArgsUsage: "<easter|christmas> <year>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageErrorf("delete-attendances expects an event and a year")
			}
			kind, year, err := parseEvent(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}

			var confirmer handler.Confirmer = handler.NewPromptConfirmer(rt.in, rt.out)
			if c.Bool("yes") {
				confirmer = handler.AlwaysConfirm{}
			}

			return rt.withHandler(c, func(ctx context.Context, h *handler.AttendanceHandler) error {
				deleted, err := h.DeleteAttendances(ctx, kind, year, confirmer)
				if errors.Is(err, handler.ErrCancelled) {
					fmt.Fprintln(rt.out, "Action cancelled.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Successfully removed %d attendances.\n", deleted)
				return nil
			})
		},
	}
}

// withHandler opens the database for the duration of one command.
func (rt *runtime) withHandler(c *cli.Context, fn func(ctx context.Context, h *handler.AttendanceHandler) error) error {
	s, err := storage.Connect(c.Context, c.String("database"), rt.log)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(c.Context, handler.NewAttendanceHandler(s, rt.log))
}

func parseEvent(rawKind, rawYear string) (models.EventKind, int, error) {
	kind, err := models.ParseEventKind(rawKind)
	if err != nil {
		return "", 0, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(rawYear))
	if err != nil || year < 1 || year > 9998 {
		return "", 0, usageErrorf("invalid year %q", rawYear)
	}
	return kind, year, nil
}
