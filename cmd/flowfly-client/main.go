// Command flowfly-client is the offline-capable command line companion to the
// calendar server. Mutations made while the server is unreachable are applied
// to the local mirror and queued for replay on the next sync.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	clientconfig "github.com/example/flowfly/internal/client/config"

	"github.com/example/flowfly/internal/client/api"
	"github.com/example/flowfly/internal/client/mirror"
	"github.com/example/flowfly/internal/client/models"
	"github.com/example/flowfly/internal/client/sync"
	"github.com/example/flowfly/internal/grid"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	configPath := os.Getenv("FLOWFLY_CLIENT_CONFIG")
	if configPath == "" {
		configPath = clientconfig.DefaultPath()
	}

	cfg, err := clientconfig.Load(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	store, err := mirror.Open(cfg.DatabasePath)
	if err != nil {
		fatal("open mirror: %v", err)
	}
	defer store.Close()

	app := &app{
		configPath: configPath,
		cfg:        cfg,
		api:        api.New(cfg.ServerURL, cfg.Token, cfg.RequestTimeout),
		store:      store,
	}
	app.coordinator = sync.New(app.api, store, nil, sync.WithPollInterval(cfg.PollInterval))

	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	var runErr error
	switch command {
	case "register":
		runErr = app.register(ctx, args)
	case "login":
		runErr = app.login(ctx, args)
	case "calendars":
		runErr = app.calendars(ctx)
	case "add-calendar":
		runErr = app.addCalendar(ctx, args)
	case "del-calendar":
		runErr = app.delCalendar(ctx, args)
	case "events":
		runErr = app.events(ctx, args)
	case "add-event":
		runErr = app.addEvent(ctx, args)
	case "edit-event":
		runErr = app.editEvent(ctx, args)
	case "del-event":
		runErr = app.delEvent(ctx, args)
	case "month":
		runErr = app.month(ctx, args)
	case "day":
		runErr = app.day(ctx, args)
	case "sync":
		runErr = app.sync(ctx)
	case "status":
		runErr = app.status(ctx)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		fatal("%v", runErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: flowfly-client <command> [flags]

commands:
  register      create an account
  login         obtain a session token
  calendars     list calendars
  add-calendar  create a calendar
  del-calendar  delete a calendar
  events        list events (-year -month -day -date)
  add-event     create an event
  edit-event    update an event
  del-event     delete an event
  month         render the month grid
  day           render a day timeline
  sync          replay queued offline mutations
  status        show connectivity and queue state`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "flowfly-client: "+format+"\n", args...)
	os.Exit(1)
}

type app struct {
	configPath  string
	cfg         *clientconfig.Config
	api         *api.Client
	store       *mirror.Store
	coordinator *sync.Coordinator
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	id, err := a.api.Register(ctx, *email, *password, *name)
	if err != nil {
		return err
	}
	fmt.Printf("registered user %s\n", id)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	token, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	a.cfg.Token = token
	if err := clientconfig.Save(a.configPath, a.cfg); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	if err := a.coordinator.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: initial mirror refresh failed: %v\n", err)
	}
	fmt.Println("logged in")
	return nil
}

func (a *app) calendars(ctx context.Context) error {
	if a.coordinator.Probe(ctx) {
		if err := a.coordinator.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: mirror refresh failed: %v\n", err)
		}
	}

	calendars, err := a.store.ListCalendars(ctx)
	if err != nil {
		return err
	}
	for _, calendar := range calendars {
		marker := " "
		if calendar.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-36s  %-20s %s\n", marker, calendar.ID, calendar.Name, calendar.Color)
	}
	return nil
}

func (a *app) addCalendar(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-calendar", flag.ExitOnError)
	name := fs.String("name", "", "calendar name")
	color := fs.String("color", "", "calendar color")
	fs.Parse(args)

	payload, err := json.Marshal(map[string]string{"name": *name, "color": *color})
	if err != nil {
		return err
	}

	a.coordinator.Probe(ctx)
	created, err := a.coordinator.CreateCalendar(ctx, models.Calendar{Name: *name, Color: *color}, payload)
	if err != nil {
		return err
	}
	fmt.Printf("calendar %s (%s)\n", created.ID, syncedLabel(a.coordinator.Online()))
	return nil
}

func (a *app) delCalendar(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("del-calendar", flag.ExitOnError)
	id := fs.String("id", "", "calendar id")
	fs.Parse(args)

	a.coordinator.Probe(ctx)
	if err := a.coordinator.DeleteCalendar(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("calendar deleted (%s)\n", syncedLabel(a.coordinator.Online()))
	return nil
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	year := fs.Int("year", 0, "filter year")
	month := fs.Int("month", 0, "filter month (1-12)")
	day := fs.Int("day", -1, "filter weekday slot (0=Sunday)")
	date := fs.String("date", "", "filter exact date (2006-01-02)")
	fs.Parse(args)

	if a.coordinator.Probe(ctx) {
		query := api.EventQuery{Year: *year, Month: *month, Date: *date}
		if *day >= 0 {
			query.Day = day
		}
		events, err := a.api.ListEvents(ctx, query)
		if err == nil {
			printEvents(events)
			return nil
		}
		fmt.Fprintf(os.Stderr, "warning: server listing failed, falling back to mirror: %v\n", err)
	}

	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return err
	}
	printEvents(filterLocal(events, *year, *month, *day, *date))
	return nil
}

// filterLocal applies the server's filter semantics to mirror data: the
// weekday slot alone when given, else the exact date, else the month window.
func filterLocal(events []models.Event, year, month, day int, date string) []models.Event {
	var out []models.Event
	for _, event := range events {
		switch {
		case day >= 0:
			if event.Day == day {
				out = append(out, event)
			}
		case date != "":
			if event.Date == date {
				out = append(out, event)
			}
		case year != 0 && month != 0:
			prefix := fmt.Sprintf("%04d-%02d-", year, month)
			if strings.HasPrefix(event.Date, prefix) {
				out = append(out, event)
			}
		default:
			out = append(out, event)
		}
	}
	return out
}

func printEvents(events []models.Event) {
	for _, event := range events {
		fmt.Printf("%-36s  %s %s-%s  %s\n", event.ID, event.Date, event.StartTime, event.EndTime, event.Title)
	}
}

func (a *app) addEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-event", flag.ExitOnError)
	title := fs.String("title", "", "event title")
	start := fs.String("start", "", "start time HH:MM")
	end := fs.String("end", "", "end time HH:MM")
	date := fs.String("date", "", "date 2006-01-02")
	calendarID := fs.String("calendar", "", "calendar id")
	description := fs.String("desc", "", "description")
	location := fs.String("location", "", "location")
	color := fs.String("color", "", "color override")
	fs.Parse(args)

	day, err := weekdayOf(*date)
	if err != nil {
		return err
	}

	body := map[string]any{
		"title":      *title,
		"startTime":  *start,
		"endTime":    *end,
		"day":        day,
		"date":       *date,
		"calendarId": *calendarID,
	}
	if *description != "" {
		body["description"] = *description
	}
	if *location != "" {
		body["location"] = *location
	}
	if *color != "" {
		body["color"] = *color
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	local := models.Event{
		CalendarID: *calendarID,
		Title:      *title,
		StartTime:  *start,
		EndTime:    *end,
		Date:       *date,
		Day:        day,
		Color:      *color,
		Location:   *location,
	}

	a.coordinator.Probe(ctx)
	created, err := a.coordinator.CreateEvent(ctx, local, payload)
	if err != nil {
		return err
	}
	fmt.Printf("event %s (%s)\n", created.ID, syncedLabel(a.coordinator.Online()))
	return nil
}

func (a *app) editEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-event", flag.ExitOnError)
	id := fs.String("id", "", "event id")
	title := fs.String("title", "", "new title")
	start := fs.String("start", "", "new start time")
	end := fs.String("end", "", "new end time")
	date := fs.String("date", "", "new date")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("edit-event requires -id")
	}

	body := map[string]any{}
	local := models.Event{ID: *id}
	if *title != "" {
		body["title"] = *title
		local.Title = *title
	}
	if *start != "" {
		body["startTime"] = *start
		local.StartTime = *start
	}
	if *end != "" {
		body["endTime"] = *end
		local.EndTime = *end
	}
	if *date != "" {
		day, err := weekdayOf(*date)
		if err != nil {
			return err
		}
		body["date"] = *date
		body["day"] = day
		local.Date = *date
		local.Day = day
	}
	if len(body) == 0 {
		return fmt.Errorf("edit-event requires at least one field flag")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	a.coordinator.Probe(ctx)
	updated, err := a.coordinator.UpdateEvent(ctx, local, payload)
	if err != nil {
		return err
	}
	fmt.Printf("event %s updated (%s)\n", updated.ID, syncedLabel(a.coordinator.Online()))
	return nil
}

func (a *app) delEvent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("del-event", flag.ExitOnError)
	id := fs.String("id", "", "event id")
	fs.Parse(args)

	a.coordinator.Probe(ctx)
	if err := a.coordinator.DeleteEvent(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("event deleted (%s)\n", syncedLabel(a.coordinator.Online()))
	return nil
}

func (a *app) month(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("month", flag.ExitOnError)
	now := time.Now()
	year := fs.Int("year", now.Year(), "grid year")
	month := fs.Int("month", int(now.Month()), "grid month (1-12)")
	fs.Parse(args)

	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return err
	}
	projection := grid.BuildMonthGrid(*year, time.Month(*month), toGridEvents(filterLocal(events, *year, *month, -1, "")))

	fmt.Printf("%s %d\n", projection.Month, projection.Year)
	fmt.Println("Sun     Mon     Tue     Wed     Thu     Fri     Sat")
	for row := 0; row < 6; row++ {
		for col := 0; col < 7; col++ {
			cell := projection.Cells[row*7+col]
			label := fmt.Sprintf("%2d", cell.Day)
			if !cell.IsCurrentMonth {
				label = " ."
			} else if len(cell.Events) > 0 {
				suffix := fmt.Sprintf("(%d", len(cell.Events))
				if cell.Overflow > 0 {
					suffix += fmt.Sprintf("+%d", cell.Overflow)
				}
				label += suffix + ")"
			}
			fmt.Printf("%-8s", label)
		}
		fmt.Println()
	}
	return nil
}

func (a *app) day(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("day", flag.ExitOnError)
	weekday := fs.Int("weekday", int(time.Now().Weekday()), "weekday slot (0=Sunday)")
	fs.Parse(args)

	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return err
	}
	timeline := grid.BuildDayTimeline(toGridEvents(events), *weekday, grid.DefaultTimelineOptions())

	fmt.Printf("%s timeline\n", time.Weekday(*weekday))
	for _, positioned := range timeline {
		fmt.Printf("%5.0fpx +%4.0fpx  %s-%s  %s\n",
			positioned.Top, positioned.Height, positioned.StartTime, positioned.EndTime, positioned.Title)
	}
	return nil
}

func (a *app) sync(ctx context.Context) error {
	if !a.coordinator.Probe(ctx) {
		return fmt.Errorf("server unreachable, queue left intact")
	}
	if err := a.coordinator.Replay(ctx); err != nil {
		return err
	}
	status, err := a.coordinator.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("sync complete: %d pending, %d failed\n", status.Pending, status.Failed)
	return nil
}

func (a *app) status(ctx context.Context) error {
	online := a.coordinator.Probe(ctx)
	status, err := a.coordinator.Status(ctx)
	if err != nil {
		return err
	}
	pending, err := a.store.PendingChanges(ctx)
	if err != nil {
		return err
	}

	state := "offline"
	if online {
		state = "online"
	}
	fmt.Printf("server: %s\n", state)
	fmt.Printf("pending changes: %v\n", pending)
	for _, record := range status.Mutations {
		line := fmt.Sprintf("%-9s %s %s %s", record.State, record.Entity, record.Op, record.TargetID)
		if record.LastError != "" {
			line += "  (" + record.LastError + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func weekdayOf(date string) (int, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: want 2006-01-02", date)
	}
	return int(parsed.Weekday()), nil
}

func toGridEvents(events []models.Event) []grid.Event {
	out := make([]grid.Event, 0, len(events))
	for _, event := range events {
		date, _ := time.Parse("2006-01-02", event.Date)
		out = append(out, grid.Event{
			ID:        event.ID,
			Title:     event.Title,
			StartTime: event.StartTime,
			EndTime:   event.EndTime,
			Color:     event.Color,
			Day:       event.Day,
			Date:      date,
		})
	}
	return out
}

func syncedLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline, queued"
}
