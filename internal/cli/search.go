package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
)

var searchMode string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stations by city name or postal code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := fetcher.SearchMode(searchMode)
		if mode != fetcher.SearchByCity && mode != fetcher.SearchByPostalCode {
			return fmt.Errorf("--mode must be %q or %q", fetcher.SearchByCity, fetcher.SearchByPostalCode)
		}
		return getApp().SearchStations(cmd.Context(), args[0], mode, cmd.OutOrStdout())
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", string(fetcher.SearchByCity), "Search mode: city or cp")
}
