package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/adapter/chromedp_fetcher"
	"github.com/user/scrapex-service/internal/adapter/httpfetch"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/pkg/logger"
)

// settings resolves flags first, then the process environment.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "scrapex-cli",
	Short: "scrapex-cli runs the ScrapeX pipeline locally without a database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logger.New(settings.GetString("LOG_LEVEL"))
		return err
	},
}

func init() {
	settings.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.Duration("timeout", 30*time.Second, "Per-request timeout for outbound calls.")
	flags.Bool("json", false, "Print raw JSON instead of a table.")
	flags.Bool("rendered", false, "Render pages in headless Chrome before extraction.")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error).")

	_ = settings.BindPFlag("TIMEOUT", flags.Lookup("timeout"))
	_ = settings.BindPFlag("JSON", flags.Lookup("json"))
	_ = settings.BindPFlag("RENDERED", flags.Lookup("rendered"))
	_ = settings.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newFetcher returns the page fetcher selected by --rendered and a cleanup func.
func newFetcher() (repository.PageFetcher, func()) {
	timeout := settings.GetDuration("TIMEOUT")
	if settings.GetBool("RENDERED") {
		f := chromedp_fetcher.NewChromedpFetcher(1, timeout, zap.L())
		return f, f.Close
	}
	return httpfetch.NewFetcher(timeout, nil, zap.L()), func() {}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// printJSON writes v when --json is set and reports whether it did.
func printJSON(v any) (bool, error) {
	if !settings.GetBool("JSON") {
		return false, nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
