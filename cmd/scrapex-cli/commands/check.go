package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/user/scrapex-service/internal/adapter/dns"
	"github.com/user/scrapex-service/internal/compliance"
	"github.com/user/scrapex-service/internal/usecase"
)

func init() {
	complianceCmd.Flags().String("timezone", "America/New_York", "IANA zone the number is called in.")
	complianceCmd.Flags().StringSlice("dnc", nil, "Numbers to treat as Do Not Call.")
	verifyEmailCmd.Flags().String("doh-endpoint", "https://dns.google/resolve", "DNS-over-HTTPS JSON endpoint.")
	_ = settings.BindPFlag("DOH_ENDPOINT", verifyEmailCmd.Flags().Lookup("doh-endpoint"))

	rootCmd.AddCommand(complianceCmd)
	rootCmd.AddCommand(verifyEmailCmd)
}

var complianceCmd = &cobra.Command{
	Use:   "compliance <phone>...",
	Short: "Checks whether each number may be called right now.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tz, _ := cmd.Flags().GetString("timezone")
		dnc, _ := cmd.Flags().GetStringSlice("dnc")
		checker, err := compliance.NewChecker(tz, dnc)
		if err != nil {
			return err
		}

		results := make([]compliance.Result, 0, len(args))
		for _, phone := range args {
			res, err := checker.Evaluate(phone, "")
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		if done, err := printJSON(results); done || err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Phone", "Can call", "Local time", "Reasons"})
		for _, res := range results {
			t.AppendRow(table.Row{res.PhoneNumber, yesNo(res.CanCall), res.LocalTime, strings.Join(res.Reasons, "\n")})
		}
		t.Render()
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email <email>...",
	Short: "Checks address format and MX records for each email.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := dns.NewDoHResolver(settings.GetString("DOH_ENDPOINT"), settings.GetDuration("TIMEOUT"))
		verifier := usecase.NewEmailVerifier(resolver)

		results := make([]*usecase.EmailVerification, 0, len(args))
		for _, email := range args {
			res, err := verifier.Verify(cmd.Context(), email)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		if done, err := printJSON(results); done || err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Email", "Format", "MX", "Deliverable", "Reason"})
		for _, res := range results {
			hosts := make([]string, 0, len(res.MXRecords))
			for _, mx := range res.MXRecords {
				hosts = append(hosts, mx.Host)
			}
			t.AppendRow(table.Row{res.Email, yesNo(res.ValidFormat), strings.Join(hosts, "\n"), yesNo(res.Deliverable), res.Reason})
		}
		t.Render()
		return nil
	},
}
