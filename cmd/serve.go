package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codenarrate/internal/wsbridge"
)

var (
	serveInputs inputFlags
	serveAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a highlight track to remote renderers over websocket",
	Long: `Serve builds the track and accepts websocket connections on /ws. Each client
gets its own playback session: it sends time signals and receives highlight and
clear events. A client may send a load message with new code and explanation to
replace its session's track.

Browser clients must come from the server's own host or an origin listed in
CODENARRATE_ALLOWED_ORIGINS.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveInputs.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8787)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	in, err := serveInputs.load(cfg)
	if err != nil {
		return err
	}
	tokens, track, err := buildTrack(cfg, in, !serveInputs.noCache)
	if err != nil {
		return err
	}

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := wsbridge.NewServer(wsbridge.Options{
		Tokens:           tokens,
		Track:            track,
		ToleranceMs:      cfg.ToleranceMs,
		SignalsPerSecond: cfg.SignalsPerSecond,
		Drift:            cfg.DriftOptions(),
		Cache:            sharedTokenCache(cfg),
		Timeline:         cfg.TimelineOptions(),
		WordDurationMs:   cfg.WordDurationMs,
		AllowedOrigins:   cfg.AllowedOrigins,
		Logger:           slog.Default(),
	})
	return srv.ListenAndServe(ctx, addr)
}
