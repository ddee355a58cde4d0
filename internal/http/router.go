package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Calendars     *CalendarHandler
	Events        *EventHandler
	Notifications *NotificationHandler

	// SessionGuard wraps every route except registration, login and health.
	SessionGuard func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	public := http.NewServeMux()
	protected := http.NewServeMux()

	public.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"status":"ok"}`))
	})

	if cfg.Auth != nil {
		public.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Register(w, r)
		})
		public.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		protected.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
	}

	if cfg.Calendars != nil {
		protected.HandleFunc("/calendars", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Calendars.List(w, r)
			case http.MethodPost:
				cfg.Calendars.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/calendars/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/calendars/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodPut:
				cfg.Calendars.Update(w, r)
			case http.MethodDelete:
				cfg.Calendars.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Events != nil {
		protected.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/events/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodPut:
				cfg.Events.Update(w, r)
			case http.MethodDelete:
				cfg.Events.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Notifications != nil {
		protected.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Notifications.List(w, r)
			case http.MethodDelete:
				cfg.Notifications.DeleteAll(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
		protected.HandleFunc("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Notifications.MarkAllRead(w, r)
		})
		protected.HandleFunc("/notifications/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			if id, ok := strings.CutSuffix(rest, "/read"); ok && id != "" && !strings.Contains(id, "/") {
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				r = r.WithContext(ContextWithResourceID(r.Context(), id))
				cfg.Notifications.MarkRead(w, r)
				return
			}
			if strings.Contains(rest, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), rest))
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Notifications.Delete(w, r)
		})
	}

	var guarded http.Handler = protected
	if cfg.SessionGuard != nil {
		guarded = cfg.SessionGuard(protected)
	}

	root := http.NewServeMux()
	root.Handle("/health", public)
	root.Handle("/auth/register", public)
	root.Handle("/auth/login", public)
	root.Handle("/", guarded)

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
