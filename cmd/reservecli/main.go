package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/config"
	"github.com/jrsteele09/go-reserve-client/internal/logging"
	"github.com/jrsteele09/go-reserve-client/session"
	"github.com/jrsteele09/go-reserve-client/token/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type app struct {
	out     io.Writer
	config  config.Config
	client  *api.Client
	session *session.Manager
	metrics *prometheus.Registry
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {usage: "login -email EMAIL -password PASSWORD", run: loginCmd},
	"logout":        {usage: "logout", run: logoutCmd},
	"me":            {usage: "me", run: meCmd},
	"signup":        {usage: "signup -name NAME -email EMAIL -password PASSWORD", run: signupCmd},
	"restaurants":   {usage: "restaurants [-keyword K] [-category C] [-region R] [-page N] [-size N]", run: restaurantsCmd},
	"nearby":        {usage: "nearby -lat LAT -lng LNG [-radius KM] [-keyword K]", run: nearbyCmd},
	"restaurant":    {usage: "restaurant -id ID", run: restaurantCmd},
	"reserve":       {usage: "reserve -restaurant ID -date YYYY-MM-DD [-time HH:MM] [-people N]", run: reserveCmd},
	"reservations":  {usage: "reservations", run: reservationsCmd},
	"cancel":        {usage: "cancel -id ID", run: cancelCmd},
	"admin-import":  {usage: "admin-import -keyword K", run: adminImportCmd},
	"admin-members": {usage: "admin-members [-keyword K]", run: adminMembersCmd},
	"status":        {usage: "status", run: statusCmd},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reservecli", flag.ContinueOnError)
	envFile := fs.String("env", "", "load variables from this .env file first")
	dumpMetrics := fs.Bool("metrics", false, "print client request counters after the command")
	fs.Usage = func() { usage(out) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("load %s: %w", *envFile, err)
		}
	}
	c := config.New()
	logging.Init(c.GetLogLevel(), c.GetEnv())

	if fs.NArg() == 0 {
		usage(out)
		return nil
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(c, out)
	if err != nil {
		return err
	}
	defer a.session.Close()

	if err := a.session.Restore(ctx); err != nil {
		log.Debug().Err(err).Msg("Could not restore the previous session")
	}

	cmdErr := cmd.run(ctx, a, fs.Args()[1:])
	if *dumpMetrics {
		printMetrics(out, a.metrics)
	}
	return cmdErr
}

func newApp(c config.Config, out io.Writer) (*app, error) {
	tokens, err := store.OpenFileStore(c.GetTokenFile())
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}

	reg := prometheus.NewRegistry()
	client := api.New(c.GetBaseURL(), api.WithTimeout(c.GetAPITimeout()), api.WithMetrics(reg))
	manager := session.New(client, tokens,
		session.WithRenewalMargin(c.GetRenewalMargin()),
		session.WithReissueTimeout(c.GetReissueTimeout()),
		session.WithEventHandler(func(e session.Event) {
			if e.Type == session.EventExpired {
				fmt.Fprintln(out, "Your session has expired. Please log in again.")
			}
		}),
	)

	return &app{
		out:     out,
		config:  c,
		client:  client,
		session: manager,
		metrics: reg,
	}, nil
}

func usage(out io.Writer) {
	displayAppname(out, config.EnvVars{}.GetAppName())
	fmt.Fprintln(out, "Usage: reservecli [-env FILE] [-metrics] <command> [flags]")
	fmt.Fprintln(out)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}

// describeError turns API errors into the message the backend meant for users
func describeError(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return "Error: " + err.Error()
	}
	var b strings.Builder
	b.WriteString("Error: " + apiErr.Body.MessageOr(apiErr.Error()))
	if apiErr.Body.HasFieldErrors() {
		fields := make([]string, 0, len(apiErr.Body.FieldErrors))
		for field := range apiErr.Body.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(&b, "\n  %s: %s", field, apiErr.Body.FieldErrors[field])
		}
	}
	return b.String()
}

func printMetrics(out io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather metrics")
		return
	}
	fmt.Fprintln(out)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
}
