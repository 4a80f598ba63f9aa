package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Manage the tracked station list",
}

var stationAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Track a station by its feed id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStationID(args[0])
		if err != nil {
			return err
		}
		return getApp().AddStation(cmd.Context(), id, cmd.OutOrStdout())
	},
}

var stationRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Stop tracking a station",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStationID(args[0])
		if err != nil {
			return err
		}
		return getApp().RemoveStation(cmd.Context(), id, cmd.OutOrStdout())
	},
}

var stationRenameCmd = &cobra.Command{
	Use:   "rename <id> [name]",
	Short: "Set a custom display name; omit the name to clear it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStationID(args[0])
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		return getApp().RenameStation(cmd.Context(), id, name, cmd.OutOrStdout())
	},
}

var stationRefCmd = &cobra.Command{
	Use:   "ref [id]",
	Short: "Set the reference station; omit the id to clear it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return getApp().ClearReference(cmd.Context(), cmd.OutOrStdout())
		}
		id, err := parseStationID(args[0])
		if err != nil {
			return err
		}
		return getApp().SetReference(cmd.Context(), id, cmd.OutOrStdout())
	},
}

var stationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked stations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListStations(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	stationCmd.AddCommand(stationAddCmd)
	stationCmd.AddCommand(stationRemoveCmd)
	stationCmd.AddCommand(stationRenameCmd)
	stationCmd.AddCommand(stationRefCmd)
	stationCmd.AddCommand(stationListCmd)
}

func parseStationID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("station id must be numeric, got %q", raw)
	}
	return id, nil
}
