package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"strmhook/internal/alist"
	"strmhook/internal/generator"
	"strmhook/internal/history"
	"strmhook/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var dirPath string
	var files []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate STRM files once, without the webhook server",
		Example: `  strmhook generate --path "/115/电影/Some Movie"
  strmhook generate --file /115/电影/a.mkv --file /115/电影/b.mp4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			opts := []generator.Option{generator.WithLogger(logger)}
			if cfg.History.Enabled {
				store, err := history.Open(cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				opts = append(opts, generator.WithRecorder(store))
			}
			gen := generator.New(cfg, alist.NewFromConfig(cfg, logger), opts...)
			runCtx := services.WithMode(cmd.Context(), history.ModeCLI)

			var result generator.Result
			if strings.TrimSpace(dirPath) != "" {
				result, err = gen.FromDirectory(runCtx, dirPath)
				if err != nil {
					return fmt.Errorf("generate from %s: %w", dirPath, err)
				}
			} else {
				for _, file := range files {
					if strings.TrimSpace(file) == "" {
						return errors.New("--file values must not be blank")
					}
				}
				result = gen.FromFiles(runCtx, files)
			}

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d file(s) failed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dirPath, "path", "p", "", "Remote AList directory (or file) to walk")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Remote file path to map directly (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("path", "file")
	cmd.MarkFlagsOneRequired("path", "file")
	return cmd
}

func printResult(out io.Writer, result generator.Result, colorize bool) {
	kind := statusOK
	message := fmt.Sprintf("%d processed, %d created, %d skipped", result.Processed, result.Created, result.Skipped)
	if len(result.Errors) > 0 {
		kind = statusError
		message += fmt.Sprintf(", %d failed", len(result.Errors))
	} else if result.Processed == 0 {
		kind = statusWarn
		message = "no media files matched"
	}
	fmt.Fprintln(out, renderStatusLine("Run "+shortID(result.RunID), kind, message, colorize))

	if len(result.Errors) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.Errors))
	for i, fileErr := range result.Errors {
		rows = append(rows, []string{strconv.Itoa(i + 1), fileErr.Path, fileErr.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Path", "Error"}, rows, nil,
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
