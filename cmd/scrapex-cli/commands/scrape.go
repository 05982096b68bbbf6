package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/usecase"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(auditCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>...",
	Short: "Fetches each URL and prints the extracted facility data.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, cleanup := newFetcher()
		defer cleanup()
		scraper := usecase.NewFacilityScraper(fetcher, zap.L())

		facilities := make([]*entity.FacilityData, 0, len(args))
		for _, u := range args {
			f, err := scraper.Scrape(cmd.Context(), u)
			if err != nil {
				return err
			}
			facilities = append(facilities, f)
		}

		if done, err := printJSON(facilities); done || err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"URL", "Name", "Phones", "Emails", "Services", "Booking", "Quality", "Error"})
		for _, f := range facilities {
			t.AppendRow(table.Row{
				f.URL,
				f.FacilityName,
				strings.Join(f.Phones, "\n"),
				strings.Join(f.Emails, "\n"),
				len(f.Services),
				yesNo(f.ContactMethods.OnlineBooking),
				fmt.Sprintf("%d/%d", f.WebsiteQuality.Score, f.WebsiteQuality.MaxScore),
				f.Error,
			})
		}
		t.Render()
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Scrapes a URL and prints its revenue-leak audit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, cleanup := newFetcher()
		defer cleanup()

		result, err := usecase.NewFacilityScraper(fetcher, zap.L()).Audit(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		if done, err := printJSON(result); done || err != nil {
			return err
		}

		audit := result.Audit
		fmt.Printf("%s (%s)\nLeak score %d/100, opportunity %s, estimated loss $%d/month\n\n",
			audit.FacilityName, audit.URL, audit.LeakScore, audit.Opportunity, audit.EstimatedMonthlyLoss)

		t := newTable()
		t.AppendHeader(table.Row{"Leak", "Weight", "Monthly loss", "Description"})
		for _, leak := range audit.Leaks {
			t.AppendRow(table.Row{leak.Key, leak.Weight, fmt.Sprintf("$%d", leak.EstimatedMonthlyLoss), leak.Description})
		}
		t.AppendFooter(table.Row{"Total", audit.LeakScore, fmt.Sprintf("$%d", audit.EstimatedMonthlyLoss), ""})
		t.Render()
		return nil
	},
}
