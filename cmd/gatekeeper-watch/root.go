package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/dashsync"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/logging"
)

type options struct {
	server         string
	username       string
	password       string
	timeout        time.Duration
	listInterval   time.Duration
	statusInterval time.Duration
	logFormat      string
	logLevel       string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gatekeeper-watch",
		Short:         "Watch a Gatekeeper server for new users and security events",
		SilenceUsage:  true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.server, "server", envOr("GATEKEEPER_URL", "http://localhost:3000"), "server base URL")
	f.StringVar(&opts.username, "username", envOr("GATEKEEPER_ADMIN_USERNAME", "admin"), "admin username")
	f.StringVar(&opts.password, "password", os.Getenv("GATEKEEPER_ADMIN_PASSWORD"), "admin password")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	f.StringVar(&opts.logFormat, "log-format", "console", "json | console")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Poll continuously and report new items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	watch.Flags().DurationVar(&opts.listInterval, "list-interval", dashsync.DefaultListInterval, "users and logs poll interval")
	watch.Flags().DurationVar(&opts.statusInterval, "status-interval", dashsync.DefaultStatusInterval, "status poll interval")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current system status as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	root.AddCommand(watch, status)
	return root
}

func (o *options) client() (*dashsync.Client, error) {
	if o.password == "" {
		return nil, errors.New("admin password required (--password or GATEKEEPER_ADMIN_PASSWORD)")
	}
	return dashsync.NewClient(dashsync.ClientConfig{
		BaseURL:  o.server,
		Username: o.username,
		Password: o.password,
		Timeout:  o.timeout,
	})
}

func runWatch(ctx context.Context, o *options, out io.Writer) error {
	client, err := o.client()
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("login to %s: %w", o.server, err)
	}

	logger := logging.Init(logging.Config{Level: o.logLevel, Format: o.logFormat, Output: out})
	p := dashsync.NewPoller(client, &logSink{log: logger}, dashsync.PollerConfig{
		ListInterval:   o.listInterval,
		StatusInterval: o.statusInterval,
	}, logger)

	logger.Info().Str("server", o.server).Msg("watching")
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runStatus(ctx context.Context, o *options, out io.Writer) error {
	client, err := o.client()
	if err != nil {
		return err
	}
	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

// logSink reports poll results as log lines.
type logSink struct {
	log zerolog.Logger
}

func (s *logSink) NewUsers(users []types.FingerprintUser) {
	for _, u := range users {
		s.log.Info().Int("id", u.ID).Str("name", u.Name).Str("fingerprint_id", u.FingerprintID).Msg("new fingerprint user")
	}
}

func (s *logSink) NewSecurityLogs(logs []types.SecurityLog) {
	for _, l := range logs {
		ev := s.log.Info()
		if l.Type == types.LogAccessDenied {
			ev = s.log.Warn()
		}
		ev.Str("id", l.ID).
			Str("type", string(l.Type)).
			Str("device_id", l.DeviceID).
			Bool("photo", l.PhotoFilename != "").
			Msg(l.Description)
	}
}

func (s *logSink) Status(st types.SystemStatus) {
	s.log.Info().
		Int("cards", st.TotalCards).
		Int("users", st.TotalUsers).
		Int("bluetooth", st.TotalBtDevices).
		Int("logs", st.TotalSecurityLogs).
		Int("devices", len(st.ActiveDevices)).
		Msg("status")
	for _, d := range st.ActiveDevices {
		s.log.Debug().Str("device_id", d.DeviceID).Str("ip", d.IP).Str("state", string(d.State)).Time("last_seen", d.LastSeen).Msg("device")
	}
}

func (s *logSink) FetchFailed(resource string, err error) {
	s.log.Warn().Err(err).Str("resource", resource).Msg("fetch failed")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
