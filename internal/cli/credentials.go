// internal/cli/credentials.go
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/crawlflow/internal/auth"
	"github.com/law-makers/crawlflow/internal/ui"
)

var credentialPassword string

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored proxy password",
	Long: `Stores the proxy password in your OS keyring (or a private file where no
keyring is available) so it does not have to appear in configuration files.
It is used whenever proxy.username is set and proxy.password is empty.`,
	Example: `  # Store the password of proxy user "alice" (read from stdin)
  crawlflow credentials set alice

  # Remove it again
  crawlflow credentials delete alice`,
	Annotations: map[string]string{noAppAnnotation: "true"},
}

var credentialsSetCmd = &cobra.Command{
	Use:         "set <proxy-username>",
	Short:       "Store the password of a proxy account",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noAppAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		password := credentialPassword
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}

		if err := auth.NewStore().SaveProxyPassword(args[0], password); err != nil {
			return err
		}
		log.Debug().Str("account", args[0]).Msg("Proxy password stored")
		fmt.Println(ui.Success("✓ Password stored for " + args[0]))
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:         "delete <proxy-username>",
	Short:       "Remove the stored password of a proxy account",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noAppAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		err := auth.NewStore().DeleteProxyPassword(args[0])
		if errors.Is(err, auth.ErrNotFound) {
			fmt.Println(ui.Info("No password stored for " + args[0]))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("✓ Password deleted for " + args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)

	credentialsSetCmd.Flags().StringVar(&credentialPassword, "password", "", "Password (read from stdin when omitted)")
}
