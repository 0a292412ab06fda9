package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/treetab/treetab/internal"
	"github.com/treetab/treetab/query"
	"github.com/treetab/treetab/scanner"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Parse query files without running the engine",
	Long: `Lists the macros and queries of each query file with their field counts and
reports suspicious lines. Directories are searched for .tgrep, .tgrep2 and .q files.
Example) treetab check queries/`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := rootContext()
		defer cancel()

		failed, err := runCheck(ctx, logger, args)
		if err != nil {
			logger.Error("Error checking query files", zap.Error(err))
			os.Exit(1)
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

// runCheck prints a report for every query file below paths and returns
// the number of files that could not be parsed.
func runCheck(ctx context.Context, logger *zap.Logger, paths []string) (int, error) {
	files, err := scanner.ScanAll(paths, scanner.DefaultExtensions...)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		source, set, err := readQueryFile(file.Path)
		if err != nil {
			logger.Error("Failed to parse query file", zap.String("path", file.Path), zap.Error(err))
			failed++
			continue
		}
		fmt.Print(internal.FormatCheckReport(file.Path, source, set))
	}
	return failed, nil
}

func readQueryFile(path string) ([]string, *query.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	source := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i, line := range source {
		source[i] = strings.TrimSuffix(line, "\r")
	}
	set, err := query.ParseLines(source)
	if err != nil {
		return nil, nil, err
	}
	return source, set, nil
}
