package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/voiceme/app"
	"github.com/upb/voiceme/handlers"
)

var askFlags struct {
	jsonOutput bool
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the command line",
	Long: `Answer one question through the same fallback chain the API uses.

Examples:
  voiceme ask "Tell me about yourself"
  voiceme ask --json "Why do you want this role?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolVar(&askFlags.jsonOutput, "json", false, "print the answer as the API's JSON body")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	result, err := deps.Interview.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	resp := handlers.NewAskResponse(result)
	if askFlags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(out, resp.Answer)
	fmt.Fprintf(out, "\n(%s, %.2fs)\n", resp.ModelUsed, resp.ResponseTime)
	return nil
}
