// internal/cli/tasks.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/crawlflow/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List registered tasks in stage order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil {
			return fmt.Errorf("application not initialized")
		}
		fmt.Printf("\n%s\n", ui.Bold("Tasks"))
		for _, t := range a.Registry.Tasks() {
			fmt.Printf("  %s%-10s%s %sorder %d%s\n",
				ui.ColorCyan, t.Name(), ui.ColorReset,
				ui.ColorDim, t.Order(), ui.ColorReset)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
