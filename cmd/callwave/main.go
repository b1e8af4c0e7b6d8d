package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/callsession"
	"github.com/callwave/callwave/internal/config"
	"github.com/callwave/callwave/internal/contacts"
	"github.com/callwave/callwave/internal/guard"
	"github.com/callwave/callwave/internal/logging"
	"github.com/callwave/callwave/internal/realtime"
	"github.com/callwave/callwave/internal/session"
	"github.com/callwave/callwave/internal/tui"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	// Commands that need no session.
	switch cmd {
	case "--version", "version", "-v":
		fmt.Println("callwave " + version)
		return nil
	case "help", "--help", "-h":
		printHelp(os.Stdout)
		return nil
	case "import":
		if len(args) < 2 {
			return errors.New("usage: callwave import <file>")
		}
		return runImport(os.Stdout, args[1])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	switch cmd {
	case "":
		return d.runTUI(guard.PathDashboard)
	case "login":
		if len(args) >= 2 {
			return d.runLogin(ctx, os.Stdout, args[1], os.Getenv("CALLWAVE_PASSWORD"))
		}
		return d.runTUI(guard.PathLogin)
	case "logout":
		return d.runLogout(ctx, os.Stdout)
	case "whoami":
		return d.runWhoami(ctx, os.Stdout)
	case "watch":
		if len(args) < 2 {
			return errors.New("usage: callwave watch <session-id>")
		}
		id, err := parseSessionID(args[1])
		if err != nil {
			return err
		}
		return d.runWatch(ctx, os.Stdout, id)
	}
	printHelp(os.Stderr)
	return fmt.Errorf("unknown command %q", cmd)
}

// deps holds everything wired from configuration.
type deps struct {
	cfg     *config.Config
	log     *zap.Logger
	store   session.Store
	session *session.Manager
	client  *client.Client
	rt      *realtime.Client
}

func setup(ctx context.Context) (*deps, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, ".env")
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Sync(log)
		return nil, err
	}

	sess := session.NewManager(store)
	c := client.New(cfg.APIURL, sess,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(log),
		client.WithLeeway(cfg.TokenLeeway),
		client.WithTokenTTL(cfg.TokenTTL),
	)
	rt := realtime.New(realtime.Config{
		URL:        cfg.SocketURL,
		Retries:    cfg.SocketRetries,
		RetryDelay: cfg.SocketRetryDelay,
		Logger:     log,
	}, c)

	log.Info("callwave starting",
		zap.String("version", version),
		zap.String("api", cfg.APIURL),
		zap.String("session_backend", cfg.SessionBackend))

	return &deps{cfg: cfg, log: log, store: store, session: sess, client: c, rt: rt}, nil
}

func (d *deps) close() {
	if err := d.store.Close(); err != nil {
		d.log.Warn("close session store", zap.Error(err))
	}
	logging.Sync(d.log)
}

// openStore returns the session backend named in cfg.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	case config.BackendRedis:
		return session.NewRedisStore(ctx, cfg.RedisURL, cfg.Profile)
	default:
		return session.NewFileStore(cfg.SessionFile), nil
	}
}

func (d *deps) runTUI(start string) error {
	app := tui.NewApp(tui.Options{
		Client:      d.client,
		Session:     d.session,
		Realtime:    d.rt,
		Version:     version,
		ReleasesURL: tui.ReleasesURL,
		Start:       start,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	d.client.OnSessionExpired(func() { p.Send(tui.SessionExpiredMsg{}) })

	final, err := p.Run()
	if a, ok := final.(tui.App); ok {
		a.Close()
	}
	if err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func (d *deps) runLogin(ctx context.Context, w io.Writer, email, password string) error {
	if password == "" {
		return errors.New("set CALLWAVE_PASSWORD, or run `callwave login` for the interactive form")
	}
	u, err := d.client.Login(ctx, client.LoginRequest{Email: email, Password: password})
	if err != nil {
		return errors.New(client.Message(err))
	}
	fmt.Fprintf(w, "Signed in as %s\n", u.DisplayName())
	return nil
}

func (d *deps) runLogout(ctx context.Context, w io.Writer) error {
	if !d.session.Authenticated(ctx) {
		fmt.Fprintln(w, "Already signed out.")
		return nil
	}
	if err := d.client.Logout(ctx); err != nil {
		d.log.Warn("server logout failed", zap.Error(err))
	}
	fmt.Fprintln(w, "Signed out.")
	return nil
}

func (d *deps) runWhoami(ctx context.Context, w io.Writer) error {
	if !d.session.Authenticated(ctx) {
		printSignedOut(w)
		return nil
	}
	u, err := d.client.Me(ctx)
	if err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			printSignedOut(w)
			return nil
		}
		return errors.New(client.Message(err))
	}
	fmt.Fprintf(w, "%s <%s>\n", u.DisplayName(), u.Email)
	if u.Company != "" {
		fmt.Fprintf(w, "company  %s\n", u.Company)
	}
	if u.Plan != "" {
		fmt.Fprintf(w, "plan     %s (%d credits)\n", u.Plan, u.Credits)
	}
	return nil
}

func parseSessionID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", s)
	}
	return id, nil
}

// runWatch mirrors a running session and prints every change until the
// session ends, the socket gives up, or the user interrupts.
func (d *deps) runWatch(ctx context.Context, w io.Writer, id int64) error {
	if !d.session.Authenticated(ctx) {
		printSignedOut(w)
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := d.rt.Subscribe(ctx, id)
	return watch(ctx, w, id, events, cancel)
}

// watch drives a Mirror from events. It calls done once the session ends.
func watch(ctx context.Context, w io.Writer, id int64, events <-chan callsession.Event, done func()) error {
	fmt.Fprintf(w, "Watching session #%d (ctrl+c to stop)\n", id)
	finished := false
	mirror := callsession.NewMirror(func(s callsession.State) {
		if finished {
			return
		}
		if !s.Active() {
			finished = true
			fmt.Fprintf(w, "session #%d finished\n", id)
			done()
			return
		}
		fmt.Fprintln(w, describe(s))
	})
	mirror.Apply(callsession.Started{SessionID: id})

	err := mirror.Run(ctx, events)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err == nil && mirror.Snapshot().Active() {
		return errors.New("lost connection to live updates")
	}
	return err
}

// describe renders one line of watch output.
func describe(s callsession.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %-11s", s.SessionID, s.Status)
	if s.TotalCalls > 0 {
		fmt.Fprintf(&b, " %d/%d", s.CurrentIndex, s.TotalCalls)
	}
	if s.Current != nil {
		fmt.Fprintf(&b, "  %s %s", s.Current.Label(), s.Current.Phone)
		if s.Attempt > 1 {
			fmt.Fprintf(&b, " (attempt %d)", s.Attempt)
		}
	}
	if n := len(s.History); n > 0 {
		last := s.History[n-1]
		fmt.Fprintf(&b, "  last: %s %s", last.Contact.Label(), last.Status)
	}
	return b.String()
}

func runImport(w io.Writer, path string) error {
	res, err := contacts.ImportFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d contacts found", len(res.Contacts))
	if res.Skipped > 0 {
		fmt.Fprintf(w, ", %d rows skipped without a phone number", res.Skipped)
	}
	fmt.Fprintln(w)
	for i, c := range res.Contacts {
		if i == 10 {
			fmt.Fprintf(w, "  ... and %d more\n", len(res.Contacts)-i)
			break
		}
		fmt.Fprintf(w, "  %-24s %-16s %s\n", contactName(c), c.Phone, c.Email)
	}
	return nil
}

func contactName(c domain.Contact) string {
	if c.Name == "" {
		return "-"
	}
	return c.Name
}
