package main

import (
	"fmt"
	"net"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/gin"
	"github.com/fwojciec/secretary/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API until interrupted. Clients sign in with
POST /v1/auth/signin and send the returned token as a bearer token.

Sign-in needs no credentials: it issues a token for the configured local
identity to any caller that reaches the port. The listen address is
therefore loopback unless SECRETARY_JWT_SECRET is set, which marks a
deliberate deployment behind a trusted proxy.

History writes that failed are retried on SECRETARY_FLUSH_SCHEDULE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkListenAddr(c.cfg.HTTPAddr, c.cfg.JWTSecret != ""); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			a.checkConnection(ctx)

			sched := cron.New()
			if _, err := sched.AddFunc(c.cfg.FlushSchedule, flushJob(a.store, a.log)); err != nil {
				return err
			}
			sched.Start()
			defer func() {
				<-sched.Stop().Done()
				flushJob(a.store, a.log)()
			}()

			opts := []gin.Option{gin.WithLogger(a.log)}
			if a.mailer != nil {
				opts = append(opts, gin.WithMailer(a.mailer))
			}
			srv := gin.New(a.chat, a.session, a.store, a.tokens, opts...)
			return srv.ListenAndServe(ctx, c.cfg.HTTPAddr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default "+defaultHTTPAddr+")")
	return cmd
}

// checkListenAddr refuses a non-loopback address unless the signing secret
// was configured explicitly.
func checkListenAddr(addr string, secretSet bool) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("listen address %q: %w: %w", addr, secretary.ErrValidation, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	if secretSet {
		return nil
	}
	return fmt.Errorf("listen address %q is not loopback: set SECRETARY_JWT_SECRET to serve on it: %w", addr, secretary.ErrValidation)
}

// flushJob retries a failed history write.
func flushJob(st *store.Store, log logrus.FieldLogger) func() {
	return func() {
		if !st.Dirty() {
			return
		}
		if err := st.Flush(); err != nil {
			log.WithError(err).Warn("history flush failed")
			return
		}
		log.Info("history flushed")
	}
}
