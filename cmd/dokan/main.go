package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dokan/internal/adapters/httpclient"
	"dokan/internal/adapters/ws"
	"dokan/internal/application/session"
	"dokan/internal/application/watcher"
	"dokan/internal/config"
	domain "dokan/internal/domain/session"
)

const usage = `usage: dokan <command> [flags]

commands:
  login     -email|-mobile -password   log in and store the session
  register  -name -email -password     create an account and store the session
  logout                               revoke and clear the stored session
  whoami    [-remote]                  print the logged-in user
  request   [-data json] METHOD PATH   call the API with the session
  watch                                end the session when logged out elsewhere
`

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()
	apiURL := cfg.Session.APIURL
	store := cfg.Session.Store
	verbose := false

	flag.StringVar(&apiURL, "api", apiURL, "Issuer API base URL")
	flag.StringVar(&store, "store", store, "Session store: memory|file|sqlite|redis|postgres")
	flag.BoolVar(&verbose, "v", verbose, "Debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if !verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	cfg.Session.APIURL = apiURL
	cfg.Session.Store = store

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "dokan:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// printNavigator is the CLI's login screen: it tells the user where to log in.
type printNavigator struct {
	out      io.Writer
	loginURL string
}

func (n printNavigator) RedirectToLogin() {
	fmt.Fprintf(n.out, "session expired; log in again with `dokan login` or at %s\n", n.loginURL)
}

// client bundles a started session manager and the API over it.
type client struct {
	manager *session.Manager
	api     *httpclient.API
	apiURL  string
	close   func() error
}

func newClient(ctx context.Context, cfg *config.Config, out io.Writer) (*client, error) {
	kv, err := openStore(ctx, &cfg.Session)
	if err != nil {
		return nil, err
	}
	apiURL := strings.TrimRight(cfg.Session.APIURL, "/")
	issuer := httpclient.NewIssuerClient(apiURL, nil)
	m := session.New(kv, issuer, printNavigator{out: out, loginURL: cfg.Session.LoginURL}, session.Options{
		AccessTokenTTL: cfg.Issuer.AccessTTL,
		RefreshMargin:  cfg.Session.RefreshMargin,
		RefreshTimeout: cfg.Session.RefreshTimeout,
		RequestTimeout: cfg.Session.RequestTimeout,
	})
	m.Start(ctx)
	return &client{manager: m, api: httpclient.NewAPI(apiURL, m.Client()), apiURL: apiURL, close: kv.Close}, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "login", "register", "logout", "whoami", "request", "watch":
	default:
		return errUsage
	}

	c, err := newClient(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer c.close()

	switch cmd {
	case "login":
		return runLogin(ctx, c, args, out)
	case "register":
		return runRegister(ctx, c, args, out)
	case "logout":
		if !c.manager.IsLoggedIn(ctx) {
			fmt.Fprintln(out, "not logged in")
			return nil
		}
		if err := c.manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")
		return nil
	case "whoami":
		return runWhoami(ctx, c, args, out)
	case "request":
		return runRequest(ctx, c, args, out)
	default:
		return runWatch(ctx, c, out)
	}
}

func runLogin(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var creds domain.Credentials
	fs.StringVar(&creds.Email, "email", "", "Account email")
	fs.StringVar(&creds.Mobile, "mobile", "", "Account mobile number")
	fs.StringVar(&creds.Password, "password", envOr("DOKAN_PASSWORD", ""), "Password (or DOKAN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if (creds.Email == "" && creds.Mobile == "") || creds.Password == "" {
		return errUsage
	}
	user, err := c.manager.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s (%s)\n", user.Name, user.ID)
	return nil
}

func runRegister(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var reg domain.Registration
	fs.StringVar(&reg.Name, "name", "", "Display name")
	fs.StringVar(&reg.Email, "email", "", "Account email")
	fs.StringVar(&reg.Mobile, "mobile", "", "Account mobile number")
	fs.StringVar(&reg.Password, "password", envOr("DOKAN_PASSWORD", ""), "Password (or DOKAN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if reg.Name == "" || (reg.Email == "" && reg.Mobile == "") || reg.Password == "" {
		return errUsage
	}
	user, err := c.manager.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (%s)\n", user.Name, user.ID)
	return nil
}

func runWhoami(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	remote := fs.Bool("remote", false, "Fetch the profile from the issuer")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	user, ok := c.manager.CurrentUser(ctx)
	if !ok {
		fmt.Fprintln(out, "not logged in")
		return nil
	}
	if *remote {
		fresh, err := c.api.Me(ctx)
		if err != nil {
			return err
		}
		if err := c.manager.UpdateProfile(ctx, *fresh); err != nil {
			return err
		}
		user = fresh
	}
	fmt.Fprintf(out, "%s <%s> id=%s role=%s\n", user.Name, user.Email, user.ID, user.Role)
	return nil
}

func runRequest(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	data := fs.String("data", "", "JSON request body")
	if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
		return errUsage
	}
	method, path := strings.ToUpper(fs.Arg(0)), fs.Arg(1)

	var body io.Reader
	if *data != "" {
		body = strings.NewReader(*data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.manager.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func runWatch(ctx context.Context, c *client, out io.Writer) error {
	if !c.manager.IsLoggedIn(ctx) {
		fmt.Fprintln(out, "not logged in")
		return nil
	}
	eventsURL, err := watcher.EventsURL(c.apiURL)
	if err != nil {
		return err
	}
	c.manager.Subscribe(func(ev session.Event) {
		if ev.State == session.StateLoggedOut {
			fmt.Fprintln(out, "session ended")
		}
	})
	fmt.Fprintln(out, "watching session events")
	return watcher.New(ws.NewClient(), c.manager, eventsURL).Run(ctx)
}
