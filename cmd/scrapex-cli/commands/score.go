package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/adapter/llm"
	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/usecase"
)

func init() {
	scoreCmd.Flags().String("gemini-model", "gemini-1.5-flash", "Gemini model used when GEMINI_API_KEY is set.")
	_ = settings.BindPFlag("GEMINI_MODEL", scoreCmd.Flags().Lookup("gemini-model"))
	rootCmd.AddCommand(scoreCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score <url>...",
	Short: "Scrapes the URLs and ranks them as sales leads.",
	Long:  "Scrapes the URLs and ranks them as sales leads. Uses Gemini when GEMINI_API_KEY is set and the heuristic scorer otherwise.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, cleanup := newFetcher()
		defer cleanup()
		scraper := usecase.NewFacilityScraper(fetcher, zap.L())

		var textGen repository.TextGenerator
		if key := settings.GetString("GEMINI_API_KEY"); key != "" {
			textGen = llm.NewGemini(llm.DefaultGeminiBaseURL, key, settings.GetString("GEMINI_MODEL"), 60*time.Second)
		}
		scorer := usecase.NewLeadScorer(textGen, zap.L())

		facilities := make([]*entity.FacilityData, 0, len(args))
		for _, u := range args {
			f, err := scraper.Scrape(cmd.Context(), u)
			if err != nil {
				return err
			}
			facilities = append(facilities, f)
		}

		result, err := scorer.BulkPredict(cmd.Context(), facilities)
		if err != nil {
			return err
		}
		if done, err := printJSON(result); done || err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Rank", "Facility", "Score", "Urgency", "Source", "Pitch"})
		for _, lead := range result.Leads {
			t.AppendRow(table.Row{lead.Rank, lead.FacilityName, lead.LeadScore, lead.Urgency, lead.Source, lead.RecommendedPitch})
		}
		t.AppendFooter(table.Row{"", "Analyzed", result.TotalAnalyzed, "Skipped", result.Skipped, ""})
		t.Render()
		return nil
	},
}
