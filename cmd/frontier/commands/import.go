package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load CSV data into the universe and history databases",
		Long: `Imports CSV files into the databases under FRONTIER_DATA_DIR so that
simulations, the scheduler and the HTTP API can run without input files.

Example:
  frontier import universe stocks_data.csv
  frontier import prices closes.csv`,
	}

	importCmd.AddCommand(&cobra.Command{
		Use:   "universe <file.csv>",
		Short: "Upsert securities from a symbol,sector CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := universe.LoadCSV(args[0])
			if err != nil {
				return err
			}

			container, err := wireContainer(cmd, root)
			if err != nil {
				return err
			}
			defer container.Close()

			for _, a := range u.Assets() {
				if err := container.SecurityRepo.Upsert(cmd.Context(), a); err != nil {
					return fmt.Errorf("failed to import %s: %w", a.Symbol, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s securities in %d sectors\n",
				humanize.Comma(int64(u.Len())), len(u.Sectors()))
			return nil
		},
	})

	importCmd.AddCommand(&cobra.Command{
		Use:   "prices <file.csv>",
		Short: "Store daily closes from a date,SYM1,SYM2,... CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := historical.LoadCSV(args[0])
			if err != nil {
				return err
			}

			container, err := wireContainer(cmd, root)
			if err != nil {
				return err
			}
			defer container.Close()

			printAnomalies(cmd.ErrOrStderr(), container.PriceValidator.Validate(prices))

			dates := prices.Dates()
			for _, symbol := range prices.Symbols() {
				closes, _ := prices.Closes(symbol)
				rows := make([]historical.DailyPrice, len(closes))
				for i, c := range closes {
					rows[i] = historical.DailyPrice{Date: dates[i], Close: c}
				}
				if err := container.HistoryRepo.InsertDailyPrices(cmd.Context(), symbol, rows); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s closes for %d symbols (%s to %s)\n",
				humanize.Comma(int64(prices.Len()*len(prices.Symbols()))),
				len(prices.Symbols()),
				dates[0].Format("2006-01-02"),
				dates[len(dates)-1].Format("2006-01-02"))
			return nil
		},
	})

	return importCmd
}

func wireContainer(cmd *cobra.Command, root *rootOptions) (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return di.Wire(cfg, root.logger(cmd))
}
