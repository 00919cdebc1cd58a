// Package configcmder provides the config command for managing persistent
// haven configuration stored in the .haven/ directory.
package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/haven/pkg/config"
)

const configLongDesc string = `Manage persistent haven configuration.

Configuration is stored as config.toml in the .haven/ directory and provides
default values for command flags. CLI flags and HAVEN_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, storage.postgres_dsn, storage.redis_addr,
  gateway.provider, gateway.url, gateway.api_key, gateway.model,
  api.listen, api.rate_limit, api.rate_burst,
  client.api_target, client.user,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  kafka.brokers, kafka.topic

Use subcommands to get, set, or list configuration values:
  haven config set <key> <value>    Set a configuration value
  haven config get <key>            Get a configuration value
  haven config list                 List all configuration values

Examples:
  haven config set gateway.url https://ai.gateway.example
  haven config set kafka.brokers kafka-1:9092,kafka-2:9092
  haven config get gateway.model
  haven config list`

const configShortDesc string = "Manage persistent haven configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// validKeys completes the first argument with config keys.
func validKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
