package main

import (
	"github.com/spf13/cobra"

	"github.com/helixir/research-analytics-service/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Averages and rankings for a country, institution or field",
	Long: `analytics computes the average h-index and RII of the researchers selected by
the filters, with their top rankings. Country-level requests without an
institution also rank institutions. --institution requires --country.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		countryID, _ := cmd.Flags().GetInt64("country")
		institutionID, _ := cmd.Flags().GetInt64("institution")
		field, _ := cmd.Flags().GetString("field")

		res, err := svc.Analytics(cmd.Context(), analytics.AnalyticsFilter{
			CountryID:     countryID,
			InstitutionID: institutionID,
			Field:         field,
		})
		return result(cmd, res, err)
	},
}

var overviewCmd = &cobra.Command{
	Use:       "overview {countries|institutions|researchers|fields|stats}",
	Short:     "Global totals and top lists",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"countries", "institutions", "researchers", "fields", "stats"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch args[0] {
		case "countries":
			res, err := svc.OverviewCountries(ctx)
			return result(cmd, res, err)
		case "institutions":
			res, err := svc.OverviewInstitutions(ctx)
			return result(cmd, res, err)
		case "researchers":
			res, err := svc.OverviewResearchers(ctx)
			return result(cmd, res, err)
		case "fields":
			res, err := svc.OverviewFields(ctx)
			return result(cmd, res, err)
		case "stats":
			res, err := svc.OverviewStats(ctx)
			return result(cmd, res, err)
		}
		return unknownView(args[0])
	},
}

func init() {
	analyticsCmd.Flags().Int64("country", 0, "country id")
	analyticsCmd.Flags().Int64("institution", 0, "institution id (requires --country)")
	analyticsCmd.Flags().String("field", "", "research field, matched against every taxonomy segment")

	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(overviewCmd)
}
