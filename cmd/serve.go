package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/pipeline"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr    string
	srvIdleMin int
	srvWarm    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard report, selection and downloads over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") && srvAddr != "" {
			addr = srvAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if srvWarm {
			if _, err := p.Snapshot(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: initial load failed: %v\n", err)
			}
		}

		sessions := pipeline.NewSessionStore(selectionOr(""), time.Duration(srvIdleMin)*time.Minute)
		srv := server.New(p, sessions, server.Options{
			User:     cfg.AuthUser,
			Password: cfg.AuthPassword,
			Logger:   logger,
		})
		if cfg.AuthUser == "" || cfg.AuthPassword == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: auth_user/auth_password not set, dashboard is open")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving IW58 dashboard on http://%s (source %s)\n", addr, p.Source())
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().IntVar(&srvIdleMin, "session-idle", 60, "minutes before an idle session is forgotten (0 = never)")
	serveCmd.Flags().BoolVar(&srvWarm, "warm", true, "load the source before accepting requests")
}
