// Command sessionctl drives a goSession Manager from the shell. It shares the
// durable store with any other instance configured the same way, so "watch" in
// one terminal shows logins and logouts made from another.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/logger"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

const usage = `usage: sessionctl [flags] <command>

commands:
  login        sign in with --username/--email and --password
  status       resolve the stored session and print it
  refresh      exchange the refresh token for a new session
  properties   list the user's properties
  logout       end the session everywhere
  watch        print session events until interrupted

flags:
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	var (
		configFile = fs.String("config", "", "config file (json, yaml or toml)")
		envFile    = fs.String("env-file", ".env", "dotenv file; ignored when missing")
		username   = fs.String("username", "", "login username")
		email      = fs.String("email", "", "login email")
		password   = fs.String("password", "", "login password; defaults to $GOSESSION_PASSWORD")
		force      = fs.BoolP("force", "f", false, "bypass the property cache")
		audit      = fs.Bool("audit", false, "write audit events to stderr as JSON lines")
	)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	cmd := fs.Arg(0)

	settings, err := config.Load(config.Options{EnvFile: *envFile, ConfigFile: *configFile})
	if err != nil {
		return fail("%v", err)
	}
	log := logger.New(os.Stderr, settings.Log)

	cfg := settings.Session
	if cmd != "watch" {
		// One-shot commands neither follow other instances nor keep a refresher.
		cfg.Sync.Disabled = true
		cfg.Refresh.Enabled = false
	}
	if *audit {
		cfg.Audit.Enabled = true
	}

	durable, cleanup, err := openStore(settings.Store, log)
	if err != nil {
		return fail("open store: %v", err)
	}
	defer cleanup()

	b := goSession.New().
		WithConfig(cfg).
		WithDurableStore(durable).
		WithLogger(log)
	if *audit {
		b = b.WithAuditSink(goSession.NewJSONWriterSink(os.Stderr))
	}
	m, err := b.Build()
	if err != nil {
		return fail("build manager: %v", err)
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "login":
		pw := *password
		if pw == "" {
			pw = os.Getenv(config.EnvPrefix + "_PASSWORD")
		}
		err = login(ctx, m, api.Credentials{Username: *username, Email: *email, Password: pw})
	case "status":
		status(ctx, m)
	case "refresh":
		err = refresh(ctx, m)
	case "properties":
		err = properties(ctx, m, *force)
	case "logout":
		m.Initialize(ctx)
		m.Logout(ctx)
		fmt.Println("logged out")
	case "watch":
		watch(ctx, m)
	default:
		fs.Usage()
		return 2
	}
	if err != nil {
		return fail("%s: %v", cmd, err)
	}
	return 0
}

func openStore(s config.StoreSettings, log *logger.Logger) (storage.Store, func(), error) {
	switch s.Kind {
	case config.StoreFile:
		fstore, err := storage.NewFileStore(filepath.Clean(s.Dir))
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("sessionctl: file store at %s", fstore.Dir())
		return fstore, func() {}, nil

	case config.StoreRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{s.RedisAddr},
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		log.Debugf("sessionctl: redis store at %s", s.RedisAddr)
		return storage.NewRedisStore(client, s.RedisPrefix, 0), func() { _ = client.Close() }, nil

	case config.StoreMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		log.Infof("sessionctl: in-process redis at %s; state is lost on exit", mr.Addr())
		return storage.NewRedisStore(client, s.RedisPrefix, 0), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", s.Kind)
}

func login(ctx context.Context, m *goSession.Manager, creds api.Credentials) error {
	if creds.Password == "" || (creds.Username == "" && creds.Email == "") {
		return errors.New("--password and one of --username or --email are required")
	}
	if err := m.LoginWithCredentials(ctx, creds); err != nil {
		return err
	}
	printSession(m)
	return nil
}

func status(ctx context.Context, m *goSession.Manager) {
	m.Initialize(ctx)
	printSession(m)
}

func refresh(ctx context.Context, m *goSession.Manager) error {
	m.Initialize(ctx)
	if err := m.RefreshToken(ctx); err != nil {
		return err
	}
	printSession(m)
	return nil
}

func properties(ctx context.Context, m *goSession.Manager, force bool) error {
	if m.Initialize(ctx) != goSession.StateAuthenticated {
		return errors.New("not logged in")
	}
	list := m.GetProperties(ctx, force)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Address)
	}
	return tw.Flush()
}

func watch(ctx context.Context, m *goSession.Manager) {
	cancel := m.Subscribe(func(ev goSession.Event) {
		line := fmt.Sprintf("%s %-16s state=%s", time.Now().Format(time.TimeOnly), ev.Kind, ev.State)
		if u := ev.Session.User; u != nil {
			line += fmt.Sprintf(" user=%s role=%s", u.ID, u.Role)
		}
		if ev.RedirectToLogin {
			line += " redirect=login"
		}
		if ev.Kind == goSession.EventPropertiesChanged {
			line += fmt.Sprintf(" properties=%d", len(ev.Properties))
		}
		fmt.Println(line)
	})
	defer cancel()

	fmt.Printf("initial state: %s\n", m.Initialize(ctx))
	<-ctx.Done()
}

func printSession(m *goSession.Manager) {
	s := m.Snapshot()
	if !m.Authenticated() || s.User == nil {
		fmt.Printf("state: %s\n", m.State())
		return
	}
	fmt.Printf("state: %s\nuser:  %s (%s)\nrole:  %s\n", m.State(), s.User.ID, displayName(s.User), s.User.Role)
	if !s.ExpiresAt.IsZero() {
		fmt.Printf("token expires: %s\n", s.ExpiresAt.Local().Format(time.RFC3339))
	}
}

func displayName(u *session.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func fail(format string, v ...any) int {
	fmt.Fprintf(os.Stderr, "sessionctl: "+format+"\n", v...)
	return 1
}
