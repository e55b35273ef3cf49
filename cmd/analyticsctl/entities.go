package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var fieldCmd = &cobra.Command{
	Use:   "field {search|overview|countries|researchers} [name]",
	Short: "Field search, rankings and geographic breakdown",
	Long: `field runs the field-scoped use cases:

  search [query]       distinct taxonomy segments containing query
  overview NAME        researcher rankings within a field
  countries NAME       contribution share per country
  researchers NAME     researcher rankings within a field and --country`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		switch args[0] {
		case "search":
			res, err := svc.SearchFields(ctx, name)
			return result(cmd, res, err)
		case "overview":
			res, err := svc.FieldOverview(ctx, name)
			return result(cmd, res, err)
		case "countries":
			res, err := svc.FieldCountries(ctx, name)
			return result(cmd, res, err)
		case "researchers":
			countryID, _ := cmd.Flags().GetInt64("country")
			res, err := svc.FieldCountryResearchers(ctx, name, countryID)
			return result(cmd, res, err)
		}
		return unknownView(args[0])
	},
}

var researcherCmd = &cobra.Command{
	Use:   "researcher ID [overview|articles|coauthors|fields]",
	Short: "Researcher profile, articles, co-authors and fields",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		switch view(args) {
		case "overview":
			res, err := svc.Researcher(ctx, id)
			return result(cmd, res, err)
		case "articles":
			res, err := svc.ResearcherArticles(ctx, id)
			return result(cmd, res, err)
		case "coauthors":
			res, err := svc.ResearcherCoauthors(ctx, id)
			return result(cmd, res, err)
		case "fields":
			res, err := svc.ResearcherFields(ctx, id)
			return result(cmd, res, err)
		}
		return unknownView(view(args))
	},
}

var researchersCmd = &cobra.Command{
	Use:   "researchers {top|list|search} [query]",
	Short: "Researcher directory, top five and name search",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch args[0] {
		case "top":
			res, err := svc.TopResearchers(ctx)
			return result(cmd, res, err)
		case "list":
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			res, err := svc.ListResearchers(ctx, page, limit)
			return result(cmd, res, err)
		case "search":
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			res, err := svc.SearchResearchers(ctx, query)
			return result(cmd, res, err)
		}
		return unknownView(args[0])
	},
}

var institutionCmd = &cobra.Command{
	Use:   "institution {ID [overview|fields] | list | names | search [query]}",
	Short: "Institution profiles, field breakdowns and lists",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch args[0] {
		case "list":
			res, err := svc.ListInstitutions(ctx)
			return result(cmd, res, err)
		case "names":
			res, err := svc.InstitutionNames(ctx)
			return result(cmd, res, err)
		case "search":
			countryID, _ := cmd.Flags().GetInt64("country")
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			res, err := svc.SearchInstitutions(ctx, countryID, query)
			return result(cmd, res, err)
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		switch view(args) {
		case "overview":
			res, err := svc.Institution(ctx, id)
			return result(cmd, res, err)
		case "fields":
			res, err := svc.InstitutionFields(ctx, id)
			return result(cmd, res, err)
		}
		return unknownView(view(args))
	},
}

var countryCmd = &cobra.Command{
	Use:   "country {ID [overview|institutions|fields] | list | search [query]}",
	Short: "Country profiles, institution rankings and field breakdowns",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch args[0] {
		case "list":
			res, err := svc.ListCountries(ctx)
			return result(cmd, res, err)
		case "search":
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			res, err := svc.SearchCountries(ctx, query)
			return result(cmd, res, err)
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		switch view(args) {
		case "overview":
			res, err := svc.Country(ctx, id)
			return result(cmd, res, err)
		case "institutions":
			res, err := svc.CountryInstitutions(ctx, id)
			return result(cmd, res, err)
		case "fields":
			res, err := svc.CountryFields(ctx, id)
			return result(cmd, res, err)
		}
		return unknownView(view(args))
	},
}

func init() {
	fieldCmd.Flags().Int64("country", 0, "country id for the researchers view")
	researchersCmd.Flags().Int("page", 1, "directory page, starting at 1")
	researchersCmd.Flags().Int("limit", 20, "directory page size")
	institutionCmd.Flags().Int64("country", 0, "country id for the search view")

	rootCmd.AddCommand(fieldCmd, researcherCmd, researchersCmd, institutionCmd, countryCmd)
}

// view returns the optional second argument, defaulting to overview.
func view(args []string) string {
	if len(args) < 2 {
		return "overview"
	}
	return args[1]
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be an integer", raw)
	}
	return id, nil
}

func unknownView(name string) error {
	return fmt.Errorf("unknown view %q", name)
}
