package cli

import (
	"fmt"

	"restaurant-finder/config"
	"restaurant-finder/server"

	"github.com/spf13/cobra"
	"github.com/umakantv/go-utils/db/migrations"
)

func newServeCmd(e *env) *cobra.Command {
	var ephemeral bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the restaurant-finder API server",
		Long: `Starts the HTTP API. The database, cache and Yelp settings come from the
config file, .env and the environment (YELP_API_KEY, DATABASE_URL, REDIS_ADDR, ...).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.StartServer(e.cfg, ephemeral)
		},
	}
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Use an in-memory SQLite database")
	return cmd
}

func newCreateMigrationCmd() *cobra.Command {
	var name, dir string
	cmd := &cobra.Command{
		Use:   "create-migration",
		Short: "Create an empty timestamped .sql migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			migrations.CreateMigration(&name, &dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Migration name (alphanum+underscore only)")
	cmd.Flags().StringVar(&dir, "dir", config.DefaultConfig().Database.MigrationsPath(), "Target directory for the new .sql file")
	return cmd
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the --config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileExists(e.configPath) && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", e.configPath)
			}
			// secrets stay in the environment
			cfg := *e.cfg
			cfg.Yelp.APIKey = ""
			cfg.Cache.RedisPassword = ""
			if err := cfg.Save(e.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", e.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective client settings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_base_url: %s\n", e.cfg.Client.APIBaseURL)
			fmt.Fprintf(out, "state_file:   %s\n", e.cfg.Client.StateFile)
			fmt.Fprintf(out, "timeout:      %s\n", e.cfg.ClientTimeout())
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
