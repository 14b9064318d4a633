package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"codenarrate/internal/player"
)

var (
	playInputs inputFlags
	playTheme  string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the explanation in the terminal with live highlighting",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

func init() {
	playInputs.register(playCmd)
	playCmd.Flags().StringVar(&playTheme, "theme", "", "chroma style for colors (default from config)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	in, err := playInputs.load(cfg)
	if err != nil {
		return err
	}
	tokens, track, err := buildTrack(cfg, in, !playInputs.noCache)
	if err != nil {
		return err
	}

	theme := cfg.Theme
	if playTheme != "" {
		theme = playTheme
	}
	palette, err := player.LoadPalette(theme)
	if err != nil {
		return err
	}

	slog.Debug("playing track", "segments", len(track.Segments), "durationMs", track.TotalDurationMs)
	return player.Run(cmd.Context(), player.Options{
		Code:        in.code,
		Tokens:      tokens,
		Track:       track,
		Explanation: in.explanation,
		Palette:     palette,
		ToleranceMs: cfg.ToleranceMs,
		Logger:      slog.Default(),
	})
}
