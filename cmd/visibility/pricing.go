package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/senso-visibility/services"
)

var pricingJSON bool

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Show the per-model token prices used for cost estimates",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := services.NewCostService().PriceTable()
		if pricingJSON {
			return printJSON(cmd.OutOrStdout(), table)
		}

		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tINPUT $/1M\tOUTPUT $/1M")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\n", name, table[name].InputPerMillion, table[name].OutputPerMillion)
		}
		return w.Flush()
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the analysis report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), services.ReportSchema())
	},
}

func init() {
	pricingCmd.Flags().BoolVar(&pricingJSON, "json", false, "print the table as JSON")
	rootCmd.AddCommand(pricingCmd, schemaCmd)
}
