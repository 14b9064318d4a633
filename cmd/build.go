package cmd

import (
	"encoding/json"

	"github.com/goforj/godump"
	"github.com/spf13/cobra"

	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

var (
	buildInputs inputFlags
	buildDump   bool
	buildTokens bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a highlight track and print it",
	Long: `Build tokenizes the code, matches each explanation word against the tokens
and prints the resulting highlight track as JSON.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildInputs.register(buildCmd)
	buildCmd.Flags().BoolVar(&buildDump, "dump", false, "pretty-print the track for debugging instead of JSON")
	buildCmd.Flags().BoolVar(&buildTokens, "tokens", false, "include the token list in the output")
	rootCmd.AddCommand(buildCmd)
}

type buildOutput struct {
	Lang   string            `json:"lang"`
	Tokens []tokenizer.Token `json:"tokens,omitempty"`
	Track  timeline.Track    `json:"track"`
	Stats  timeline.Stats    `json:"stats"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	in, err := buildInputs.load(cfg)
	if err != nil {
		return err
	}
	tokens, track, err := buildTrack(cfg, in, !buildInputs.noCache)
	if err != nil {
		return err
	}

	out := buildOutput{Lang: string(in.lang), Track: track, Stats: track.Stats()}
	if buildTokens {
		out.Tokens = tokens
	}

	if buildDump {
		godump.Fdump(cmd.OutOrStdout(), out)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
