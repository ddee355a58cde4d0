package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/flowfly/internal/application"
	"github.com/example/flowfly/internal/config"
	httptransport "github.com/example/flowfly/internal/http"
	"github.com/example/flowfly/internal/logging"
	"github.com/example/flowfly/internal/persistence"
	"github.com/example/flowfly/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, logLevel(cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	users := newUserRepositoryAdapter(sqlite.NewUserRepository(storage))
	calendars := newCalendarRepositoryAdapter(sqlite.NewCalendarRepository(storage))
	events := newEventRepositoryAdapter(sqlite.NewEventRepository(storage))
	notifications := newNotificationRepositoryAdapter(sqlite.NewNotificationRepository(storage))
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(storage))

	notificationService := application.NewNotificationService(notifications, idGenerator, now, logger)
	calendarService := application.NewCalendarService(calendars, idGenerator, now, logger)
	eventService := application.NewEventService(events, calendars, users, notificationService, idGenerator, now, logger)
	userService := application.NewUserService(users, calendars, application.CreatePasswordHash, idGenerator, now, logger)
	authService := application.NewAuthService(users, sessions, tokenGenerator, now, cfg.SessionTTL, logger)
	maintenanceService := application.NewMaintenanceService(authService, notifications, cfg.NotificationRetention, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(userService, authService, logger),
		Calendars:     httptransport.NewCalendarHandler(calendarService, logger),
		Events:        httptransport.NewEventHandler(eventService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		SessionGuard:  httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.MaintenanceSchedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := maintenanceService.Run(runCtx); err != nil {
			logger.Error("maintenance sweep failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid maintenance schedule", "schedule", cfg.MaintenanceSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calendar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type userRepositoryAdapter struct {
	repo *sqlite.UserRepository
}

func newUserRepositoryAdapter(repo *sqlite.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	stored := persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := a.repo.CreateUser(ctx, stored); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

type calendarRepositoryAdapter struct {
	repo *sqlite.CalendarRepository
}

func newCalendarRepositoryAdapter(repo *sqlite.CalendarRepository) *calendarRepositoryAdapter {
	return &calendarRepositoryAdapter{repo: repo}
}

func (a *calendarRepositoryAdapter) CreateCalendar(ctx context.Context, calendar application.Calendar) (application.Calendar, error) {
	if err := a.repo.CreateCalendar(ctx, toPersistenceCalendar(calendar)); err != nil {
		return application.Calendar{}, err
	}
	return a.GetCalendar(ctx, calendar.ID)
}

func (a *calendarRepositoryAdapter) UpdateCalendar(ctx context.Context, calendar application.Calendar) (application.Calendar, error) {
	if err := a.repo.UpdateCalendar(ctx, toPersistenceCalendar(calendar)); err != nil {
		return application.Calendar{}, err
	}
	return a.GetCalendar(ctx, calendar.ID)
}

func (a *calendarRepositoryAdapter) GetCalendar(ctx context.Context, id string) (application.Calendar, error) {
	stored, err := a.repo.GetCalendar(ctx, id)
	if err != nil {
		return application.Calendar{}, err
	}
	return toApplicationCalendar(stored), nil
}

func (a *calendarRepositoryAdapter) ListCalendarsForUser(ctx context.Context, userID string) ([]application.Calendar, error) {
	stored, err := a.repo.ListCalendarsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]application.Calendar, 0, len(stored))
	for _, calendar := range stored {
		out = append(out, toApplicationCalendar(calendar))
	}
	return out, nil
}

func (a *calendarRepositoryAdapter) CountCalendarsForUser(ctx context.Context, userID string) (int, error) {
	return a.repo.CountCalendarsForUser(ctx, userID)
}

func (a *calendarRepositoryAdapter) DeleteCalendarCascade(ctx context.Context, id string) (int, error) {
	return a.repo.DeleteCalendarCascade(ctx, id)
}

func toPersistenceCalendar(calendar application.Calendar) persistence.Calendar {
	return persistence.Calendar{
		ID:        calendar.ID,
		UserID:    calendar.UserID,
		Name:      calendar.Name,
		Color:     calendar.Color,
		IsDefault: calendar.IsDefault,
		CreatedAt: calendar.CreatedAt,
		UpdatedAt: calendar.UpdatedAt,
	}
}

func toApplicationCalendar(calendar persistence.Calendar) application.Calendar {
	return application.Calendar{
		ID:        calendar.ID,
		UserID:    calendar.UserID,
		Name:      calendar.Name,
		Color:     calendar.Color,
		IsDefault: calendar.IsDefault,
		CreatedAt: calendar.CreatedAt,
		UpdatedAt: calendar.UpdatedAt,
	}
}

type eventRepositoryAdapter struct {
	repo *sqlite.EventRepository
}

func newEventRepositoryAdapter(repo *sqlite.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, calendarIDs []string, filter application.EventListFilter) ([]application.Event, error) {
	stored, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		CalendarIDs: calendarIDs,
		Year:        filter.Year,
		Month:       filter.Month,
		Day:         filter.Day,
		Date:        filter.Date,
	})
	if err != nil {
		return nil, err
	}
	out := make([]application.Event, 0, len(stored))
	for _, event := range stored {
		out = append(out, toApplicationEvent(event))
	}
	return out, nil
}

func (a *eventRepositoryAdapter) DeleteEventWithNotifications(ctx context.Context, id string) error {
	return a.repo.DeleteEventWithNotifications(ctx, id)
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		UserID:      event.UserID,
		CalendarID:  event.CalendarID,
		Title:       event.Title,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		Description: event.Description,
		Location:    event.Location,
		Color:       event.Color,
		Day:         event.Day,
		Date:        event.Date,
		Attendees:   event.Attendees,
		Organizer:   event.Organizer,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toApplicationEvent(event persistence.Event) application.Event {
	return application.Event{
		ID:          event.ID,
		UserID:      event.UserID,
		CalendarID:  event.CalendarID,
		Title:       event.Title,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		Description: event.Description,
		Location:    event.Location,
		Color:       event.Color,
		Day:         event.Day,
		Date:        event.Date,
		Attendees:   event.Attendees,
		Organizer:   event.Organizer,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

type notificationRepositoryAdapter struct {
	repo *sqlite.NotificationRepository
}

func newNotificationRepositoryAdapter(repo *sqlite.NotificationRepository) *notificationRepositoryAdapter {
	return &notificationRepositoryAdapter{repo: repo}
}

func (a *notificationRepositoryAdapter) CreateNotification(ctx context.Context, notification application.Notification) error {
	return a.repo.CreateNotification(ctx, toPersistenceNotification(notification))
}

func (a *notificationRepositoryAdapter) GetNotification(ctx context.Context, id string) (application.Notification, error) {
	stored, err := a.repo.GetNotification(ctx, id)
	if err != nil {
		return application.Notification{}, err
	}
	return toApplicationNotification(stored), nil
}

func (a *notificationRepositoryAdapter) ListNotificationsForUser(ctx context.Context, userID string) ([]application.Notification, error) {
	stored, err := a.repo.ListNotificationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]application.Notification, 0, len(stored))
	for _, notification := range stored {
		out = append(out, toApplicationNotification(notification))
	}
	return out, nil
}

func (a *notificationRepositoryAdapter) MarkNotificationRead(ctx context.Context, id string) (application.Notification, error) {
	stored, err := a.repo.MarkNotificationRead(ctx, id)
	if err != nil {
		return application.Notification{}, err
	}
	return toApplicationNotification(stored), nil
}

func (a *notificationRepositoryAdapter) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return a.repo.MarkAllNotificationsRead(ctx, userID)
}

func (a *notificationRepositoryAdapter) DeleteNotification(ctx context.Context, id string) error {
	return a.repo.DeleteNotification(ctx, id)
}

func (a *notificationRepositoryAdapter) DeleteAllNotificationsForUser(ctx context.Context, userID string) error {
	return a.repo.DeleteAllNotificationsForUser(ctx, userID)
}

func (a *notificationRepositoryAdapter) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return a.repo.DeleteReadNotificationsBefore(ctx, cutoff)
}

func toPersistenceNotification(notification application.Notification) persistence.Notification {
	return persistence.Notification{
		ID:        notification.ID,
		UserID:    notification.UserID,
		EventID:   notification.EventID,
		Title:     notification.Title,
		Message:   notification.Message,
		Timestamp: notification.Timestamp,
		Read:      notification.Read,
		Type:      notification.Type,
		CreatedAt: notification.CreatedAt,
	}
}

func toApplicationNotification(notification persistence.Notification) application.Notification {
	return application.Notification{
		ID:        notification.ID,
		UserID:    notification.UserID,
		EventID:   notification.EventID,
		Title:     notification.Title,
		Message:   notification.Message,
		Timestamp: notification.Timestamp,
		Read:      notification.Read,
		Type:      notification.Type,
		CreatedAt: notification.CreatedAt,
	}
}

type sessionRepositoryAdapter struct {
	repo *sqlite.SessionRepository
}

func newSessionRepositoryAdapter(repo *sqlite.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error) {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: session.RevokedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: session.RevokedAt,
	}
}
