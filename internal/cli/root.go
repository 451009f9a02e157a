package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys. Each can come from a flag, the config file or an
// HVPSU_ environment variable (HVPSU_SERVER, HVPSU_TOKEN, HVPSU_JWT_SECRET).
const (
	keyServer    = "server"
	keyToken     = "token"
	keyOutput    = "output"
	keyJWTSecret = "jwt-secret"
)

const (
	defaultServer = "http://127.0.0.1:5001"
	envPrefix     = "HVPSU"
	configName    = ".hvpsuctl"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

// app holds the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	version string
}

// NewRootCommand builds the hvpsuctl command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{v: viper.New(), version: version}

	root := &cobra.Command{
		Use:   "hvpsuctl",
		Short: "Control high-voltage PSUs through hvpsud",
		Long: `hvpsuctl drives the PSUs owned by a running hvpsud over its HTTP API.

Settings are read from flags, then HVPSU_* environment variables, then
$HOME/.hvpsuctl.yaml (or the file named by --config).

Example usage:
  hvpsuctl status
  hvpsuctl set-voltage fug 12000
  hvpsuctl relay fug on
  hvpsuctl teardown`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.hvpsuctl.yaml)")
	flags.String(keyServer, defaultServer, "hvpsud base URL")
	flags.String(keyToken, "", "bearer token for hvpsud")
	flags.StringP(keyOutput, "o", outputText, "output format: text or json")

	root.AddCommand(
		a.newInfoCmd(),
		a.newStatusCmd(),
		a.newConnectCmd(),
		a.newSetVoltageCmd(),
		a.newSetCurrentCmd(),
		a.newReadCmd(),
		a.newRelayCmd(),
		a.newTeardownCmd(),
		a.newTokenCmd(),
	)
	return root
}

// Execute runs the command tree and reports any error on stderr.
func Execute(version string) int {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// initConfig binds flags and environment to viper and reads the config file.
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	switch out := a.v.GetString(keyOutput); out {
	case outputText, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q", out)
	}
	return nil
}

// client builds an API client from the resolved settings.
func (a *app) client() (*Client, error) {
	return NewClient(a.v.GetString(keyServer), a.v.GetString(keyToken))
}

func (a *app) jsonOutput() bool {
	return a.v.GetString(keyOutput) == outputJSON
}
