// Package devserver is an in-memory Callwave backend for local use and
// end-to-end tests. It serves the REST API under /api and the call-status
// socket at /ws, and simulates campaigns instead of placing real calls.
package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/callwave/callwave/pkg/domain"
)

// Demo credentials seeded on startup.
const (
	DemoEmail    = "demo@callwave.dev"
	DemoPassword = "password"
)

// Options configures the server.
type Options struct {
	Secret        string
	AccessTTL     time.Duration // short by default so clients exercise refresh
	RefreshTTL    time.Duration
	CallInterval  time.Duration // simulated ring time per attempt
	MaxAttempts   int
	SubscribeWait time.Duration // how long a campaign waits for a subscriber
	Outcome       OutcomeFunc
	Logger        *zap.Logger
	Now           func() time.Time
	// Seed adds a demo account with sample groups and workflows.
	Seed bool
}

func (o *Options) defaults() {
	if o.Secret == "" {
		o.Secret = uuid.NewString()
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = time.Minute
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 7 * 24 * time.Hour
	}
	if o.CallInterval <= 0 {
		o.CallInterval = 2 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 2
	}
	if o.SubscribeWait <= 0 {
		o.SubscribeWait = 3 * time.Second
	}
	if o.Outcome == nil {
		o.Outcome = RandomOutcome
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Server is the dev backend.
type Server struct {
	opts      Options
	store     *store
	tokens    *tokenIssuer
	hub       *hub
	campaigns *campaigns
	log       *zap.Logger
}

// New creates a server.
func New(opts Options) (*Server, error) {
	opts.defaults()
	s := &Server{
		opts:  opts,
		store: newStore(),
		tokens: &tokenIssuer{
			secret:     []byte(opts.Secret),
			accessTTL:  opts.AccessTTL,
			refreshTTL: opts.RefreshTTL,
			now:        opts.Now,
		},
		hub:       newHub(opts.Logger),
		campaigns: &campaigns{active: make(map[int64]*campaign)},
		log:       opts.Logger,
	}
	if opts.Seed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddUser registers an account.
func (s *Server) AddUser(u domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.opts.Now().UTC()
	}
	s.store.addAccount(u, hash)
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLog)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) }) //nolint:errcheck
	r.Get("/ws", s.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)

			r.Post("/calls/start", s.handleStartCalls)
			r.Post("/calls/{id}/stop", s.handleStopCalls)
			r.Get("/calls/history", s.handleCallHistory)

			r.Get("/contact-groups", s.handleListGroups)
			r.Post("/contact-groups", s.handleCreateGroup)
			r.Get("/contact-groups/{id}", s.handleGetGroup)

			r.Get("/workflows", s.handleListWorkflows)
			r.Post("/workflows", s.handleCreateWorkflow)
			r.Get("/workflows/{id}", s.handleGetWorkflow)
			r.Put("/workflows/{id}", s.handleUpdateWorkflow)
			r.Delete("/workflows/{id}", s.handleDeleteWorkflow)
			r.Get("/workflows/{id}/documents", s.handleListDocuments)
			r.Post("/workflows/{id}/documents", s.handleUploadDocument)
			r.Delete("/workflows/{id}/documents/{docID}", s.handleDeleteDocument)
		})
	})
	return r
}

// Close stops running campaigns and disconnects sockets.
func (s *Server) Close() {
	s.campaigns.stopAll()
	s.hub.closeAll()
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
		)
	})
}

func (s *Server) seed() error {
	if err := s.AddUser(domain.User{
		Name:    "Demo Operator",
		Email:   DemoEmail,
		Company: "Callwave Demo Co.",
		Plan:    "starter",
		Credits: 500,
	}, DemoPassword); err != nil {
		return err
	}
	s.store.createGroup("Spring leads", []domain.Contact{
		{Name: "Ada Lovelace", Phone: "+15550100001", Email: "ada@example.com"},
		{Name: "Alan Turing", Phone: "+15550100002"},
		{Name: "Grace Hopper", Phone: "+15550100003", Email: "grace@example.com"},
		{Name: "Edsger Dijkstra", Phone: "+15550100004"},
	})
	s.store.createGroup("Renewals", []domain.Contact{
		{Name: "Barbara Liskov", Phone: "+15550100011"},
		{Name: "Ken Thompson", Phone: "+15550100012"},
	})
	s.store.saveWorkflow(domain.Workflow{
		Name:        "Appointment reminder",
		Description: "Confirms tomorrow's appointment.",
		Greeting:    "Hi, this is a reminder about your appointment tomorrow.",
		IVROptions: []domain.IVROption{
			{Digit: "1", Label: "Confirm", Action: "confirm"},
			{Digit: "2", Label: "Reschedule", Action: "transfer"},
		},
	})
	s.store.saveWorkflow(domain.Workflow{
		Name:     "Renewal offer",
		Greeting: "Hello! Your plan renews next week.",
	})
	return nil
}
