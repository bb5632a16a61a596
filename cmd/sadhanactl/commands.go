package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"sadhana/backend/bhoga"
	"sadhana/backend/config"
	"sadhana/backend/ledger"
	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/client"
)

var logger = slog.Default()

var errNotLoggedIn = errors.New("not logged in: pass --email/--password or set SADHANA_TOKEN (see `sadhanactl login`)")

// connect открывает сессию: по email/паролю, если они заданы, иначе по токену
func connect(c *cli.Context, cfg *config.ClientConfig) (*client.App, error) {
	app := client.NewApp(cfg, client.LogNotifier{Logger: logger})

	if email := c.String("email"); email != "" {
		if _, err := app.Login(c.Context, email, c.String("password")); err != nil {
			return nil, err
		}
		return app, nil
	}

	user, err := app.RestoreSession(c.Context)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errNotLoggedIn
	}
	return app, nil
}

func loginCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and print a token for SADHANA_TOKEN",
		Action: func(c *cli.Context) error {
			if c.String("email") == "" {
				return errors.New("--email is required")
			}
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, app.API().Token())
			return nil
		},
	}
}

func todayCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "show today's activity, optionally recording it",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "japa", Usage: "japa rounds"},
			&cli.BoolFlag{Name: "aarti", Usage: "attended mangala aarti"},
			&cli.BoolFlag{Name: "bhoga", Usage: "offered bhoga"},
			&cli.StringFlag{Name: "wake", Usage: "wake up time HH:mm"},
			&cli.StringFlag{Name: "sleep", Usage: "sleep time HH:mm"},
		},
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			today := app.Today()
			user := app.Store().Session().User
			if _, err := app.LoadActivities(c.Context, client.ActivityQuery{UserID: user.ID, StartDate: today, EndDate: today}); err != nil {
				return err
			}

			activity, found := app.ActivityByDate(today)
			if anySet(c, "japa", "aarti", "bhoga", "wake", "sleep") {
				if c.IsSet("japa") {
					activity.JapaRounds = c.Int("japa")
				}
				if c.IsSet("aarti") {
					activity.MangalaAarti = c.Bool("aarti")
				}
				if c.IsSet("bhoga") {
					activity.BhogaOffering = c.Bool("bhoga")
				}
				if c.IsSet("wake") {
					activity.WakeUpTime = c.String("wake")
				}
				if c.IsSet("sleep") {
					activity.SleepTime = c.String("sleep")
				}
				saved, err := app.SaveTodayActivity(c.Context, activity)
				if err != nil {
					return err
				}
				activity, found = *saved, true
			}

			if !found {
				fmt.Fprintf(c.App.Writer, "No activity recorded for %s\n", today)
				return nil
			}
			if len(activity.PreachingContacts) > 0 {
				if _, err := app.LoadStatuses(c.Context, today); err != nil {
					return err
				}
			}
			printActivity(c.App.Writer, activity, app.ContactStatuses(today, activity))
			return nil
		},
	}
}

func dashboardCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "admin summary and per-user totals",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Usage: "name or email substring"},
			&cli.StringFlag{Name: "start", Usage: "inclusive start date YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Usage: "inclusive end date YYYY-MM-DD"},
		},
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			d, err := app.Dashboard(c.Context, client.DashboardQuery{
				Search:    c.String("search"),
				StartDate: c.String("start"),
				EndDate:   c.String("end"),
			})
			if err != nil {
				return err
			}
			printDashboard(c.App.Writer, d)
			return nil
		},
	}
}

func bhogaCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "bhoga",
		Usage: "bhoga offerings for today and the next six days",
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			days, err := app.BhogaReport(c.Context)
			if err != nil {
				return err
			}
			printBhoga(c.App.Writer, days)
			return nil
		},
	}
}

func scheduleCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "show or change the weekly bhoga schedule",
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			schedule, err := app.LoadSchedule(c.Context)
			if err != nil {
				return err
			}
			printSchedule(c.App.Writer, schedule)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "assign days, e.g. monday=<userId> tuesday=none",
				ArgsUsage: "weekday=<userId|none> ...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("at least one weekday=<userId> is required")
					}
					app, err := connect(c, cfg)
					if err != nil {
						return err
					}
					schedule, err := app.LoadSchedule(c.Context)
					if err != nil {
						return err
					}
					if err := applyAssignments(&schedule, c.Args().Slice()); err != nil {
						return err
					}
					saved, err := app.SaveSchedule(c.Context, schedule)
					if err != nil {
						return err
					}
					printSchedule(c.App.Writer, saved)
					return nil
				},
			},
		},
	}
}

func preachingCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "preaching",
		Usage: "preaching contacts of the last 30 days",
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			summary, err := app.PreachingReport(c.Context)
			if err != nil {
				return err
			}
			printPreaching(c.App.Writer, summary)
			return nil
		},
	}
}

func statusesCommand(cfg *config.ClientConfig) *cli.Command {
	return &cli.Command{
		Name:  "statuses",
		Usage: "preaching follow-up statuses for a date",
		Flags: []cli.Flag{dateFlag()},
		Action: func(c *cli.Context) error {
			app, err := connect(c, cfg)
			if err != nil {
				return err
			}
			date := dateOr(c, app.Today())
			loaded, err := app.LoadStatuses(c.Context, date)
			if err != nil {
				return err
			}
			printStatuses(c.App.Writer, date, loaded[date])
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "set the status of one contact",
				Flags: []cli.Flag{
					dateFlag(),
					&cli.StringFlag{Name: "user", Usage: "user id (default: yourself)"},
					&cli.StringFlag{Name: "contact", Usage: "contact phone or id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "contact name"},
					&cli.StringFlag{Name: "status", Usage: "status text", Required: true},
					&cli.BoolFlag{Name: "attended", Usage: "contact attended"},
				},
				Action: func(c *cli.Context) error {
					app, err := connect(c, cfg)
					if err != nil {
						return err
					}
					date := dateOr(c, app.Today())
					userID := c.String("user")
					if userID == "" {
						userID = app.Store().Session().User.ID
					}
					err = app.UpdateStatus(c.Context, userID, date, models.StatusUpdate{
						ContactNumber: c.String("contact"),
						ContactName:   c.String("name"),
						Status:        c.String("status"),
						Attended:      c.Bool("attended"),
					})
					if err != nil {
						return err
					}
					printStatuses(c.App.Writer, date, app.Store().Snapshot().Ledger.Date(date))
					return nil
				},
			},
		},
	}
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{Name: "date", Usage: "date YYYY-MM-DD (default today)"}
}

func anySet(c *cli.Context, names ...string) bool {
	for _, n := range names {
		if c.IsSet(n) {
			return true
		}
	}
	return false
}

func dateOr(c *cli.Context, fallback string) string {
	if d := c.String("date"); d != "" {
		return d
	}
	return fallback
}

// applyAssignments разбирает аргументы вида monday=<userId>; none или пустое значение снимает назначение
func applyAssignments(s *models.BhogaSchedule, args []string) error {
	for _, arg := range args {
		day, id, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("bad assignment %q: want weekday=<userId>", arg)
		}
		d, err := models.ParseWeekday(day)
		if err != nil {
			return err
		}
		var ref *models.UserRef
		if id = strings.TrimSpace(id); id != "" && id != "none" {
			ref = &models.UserRef{ID: id}
		}
		if err := s.Assign(d, ref); err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
	}
	return nil
}

func printActivity(w io.Writer, a models.Activity, contacts []client.ContactStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\t%s\n", a.Date)
	fmt.Fprintf(tw, "Mangala aarti\t%s\n", yesNo(a.MangalaAarti))
	if !a.MangalaAarti && a.MangalaAartiReason != "" {
		fmt.Fprintf(tw, "Reason\t%s\n", a.MangalaAartiReason)
	}
	fmt.Fprintf(tw, "Japa rounds\t%d\n", a.JapaRounds)
	fmt.Fprintf(tw, "Lecture\t%d min\n", a.LectureDuration)
	fmt.Fprintf(tw, "Reading\t%d min\n", a.ReadingDuration)
	fmt.Fprintf(tw, "Wake up\t%s\n", orDash(a.WakeUpTime))
	fmt.Fprintf(tw, "Sleep\t%s\n", orDash(a.SleepTime))
	fmt.Fprintf(tw, "Bhoga offered\t%s\n", yesNo(a.BhogaOffering))
	fmt.Fprintf(tw, "Preaching contacts\t%d\n", len(a.PreachingContacts))
	tw.Flush()
	if len(contacts) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "CONTACT\tKEY\tSTATUS\tATTENDED")
	for _, cs := range contacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cs.Contact.Name, cs.Key, orDash(cs.Status.Status), yesNo(cs.Status.Attended))
	}
}

func printDashboard(w io.Writer, d *client.Dashboard) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	s := d.Summary
	fmt.Fprintf(tw, "Regular users\t%d\n", s.RegularUsers)
	fmt.Fprintf(tw, "Total japa rounds\t%d\n", s.TotalJapaRounds)
	fmt.Fprintf(tw, "Average japa per user\t%d\n", s.AverageJapaPerUser)
	fmt.Fprintf(tw, "Bhoga offerings\t%d\n", s.BhogaOfferings)
	fmt.Fprintf(tw, "Today's activities\t%d\n", s.TodaysActivities)
	fmt.Fprintf(tw, "Preaching contacts\t%d\n", s.PreachingContacts)
	tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tDAYS\tAARTI\tJAPA\tLECTURE\tREADING\tBHOGA\tCONTACTS")
	for _, row := range d.Users {
		st := row.Stats
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			row.User.Name, row.User.Email, st.TotalActivities, st.MangalaAartiCount, st.TotalJapaRounds,
			st.TotalLectureDuration, st.TotalReadingDuration, st.BhogaOfferings, st.PreachingContacts)
	}
	tw.Flush()
}

func printBhoga(w io.Writer, days []bhoga.Day) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "DAY\tDATE\tASSIGNED\tSTATUS")
	for _, d := range days {
		assigned := "-"
		if d.AssignedUser != nil {
			assigned = d.AssignedUser.Name
		}
		flag := ""
		if d.AssignedUserDidNotOffer {
			flag = "! "
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\n", d.Label, d.Date, assigned, flag, d.Message)
	}
}

func printSchedule(w io.Writer, s models.BhogaSchedule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, d := range models.EditableWeekdays {
		name := "-"
		if ref := s.Get(d); ref != nil {
			name = ref.Name
			if name == "" {
				name = ref.ID
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", d, name)
	}
	fmt.Fprintf(tw, "%s\t%s\n", models.Sunday, models.SundayDuty)
}

func printPreaching(w io.Writer, s *report.PreachingSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Since\t%s\n", s.From)
	fmt.Fprintf(tw, "Total contacts\t%d\n", s.TotalContacts)
	fmt.Fprintf(tw, "Devotees preaching\t%d\n", s.UniqueDevotees)
	fmt.Fprintf(tw, "Average per devotee\t%s\n", strconv.FormatFloat(s.AverageContactsPerDevotee, 'f', 1, 64))
	tw.Flush()

	if len(s.Recent) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDEVOTEE\tCONTACTS")
	for _, e := range s.Recent {
		names := make([]string, 0, len(e.Contacts))
		for _, c := range e.Contacts {
			names = append(names, c.Name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Date, e.UserName, strings.Join(names, ", "))
	}
	tw.Flush()
}

func printStatuses(w io.Writer, date string, m ledger.DateMap) {
	if len(m) == 0 {
		fmt.Fprintf(w, "No preaching statuses for %s\n", date)
		return
	}
	users := make([]string, 0, len(m))
	for u := range m {
		users = append(users, u)
	}
	sort.Strings(users)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "USER\tCONTACT\tNAME\tSTATUS\tATTENDED")
	for _, u := range users {
		contacts := make([]string, 0, len(m[u]))
		for c := range m[u] {
			contacts = append(contacts, c)
		}
		sort.Strings(contacts)
		for _, c := range contacts {
			e := m[u][c]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u, c, orDash(e.ContactName), orDash(e.Status), yesNo(e.Attended))
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
