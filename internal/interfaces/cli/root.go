// Package cli implements portalctl, the terminal client of the customer
// portal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/erp/portal/internal/interfaces/cli/client"
)

// Config keys
const (
	keyServer     = "server"
	keyToken      = "token"
	keyCustomerID = "customer_id"
	keyPassword   = "password"
)

const defaultServer = "http://localhost:8080"

// app carries the state shared by every command.
type app struct {
	v          *viper.Viper
	configPath string
	output     *outputFormat
	out        io.Writer
	newClient  func(server, token string) *client.Client
}

// NewRootCmd builds the portalctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{
		v:      viper.New(),
		output: newOutputFormat(),
		newClient: func(server, token string) *client.Client {
			return client.New(server, client.WithToken(token))
		},
	}

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Terminal client of the customer portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigPath(), "Path to the portalctl config file")
	flags.String("server", defaultServer, "Base URL of the portal server")
	flags.String("customer-id", "", "Customer ID used by login")
	flags.String("password", "", "Password used by login")
	flags.VarP(a.output, "output", "o", "Output format: table|json|yaml")

	_ = a.v.BindPFlag(keyServer, flags.Lookup("server"))
	_ = a.v.BindPFlag(keyCustomerID, flags.Lookup("customer-id"))
	_ = a.v.BindPFlag(keyPassword, flags.Lookup("password"))

	root.AddCommand(
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newProfileCmd(),
		a.newTabCmd(),
		a.newExportCmd(),
		a.newInvoiceCmd(),
		a.newAnalyticsCmd(),
		a.newBrowseCmd(),
	)
	return root
}

// Execute runs portalctl with os.Args and exits non-zero on failure.
func Execute(ctx context.Context) {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portalctl.yaml"
	}
	return filepath.Join(dir, "portalctl", "config.yaml")
}

func (a *app) loadConfig() error {
	a.v.SetConfigFile(a.configPath)
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix("PORTALCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config %s: %w", a.configPath, err)
		}
	}
	return nil
}

// saveConfig persists the server, customer and token. The password is
// never written.
func (a *app) saveConfig() error {
	if err := os.MkdirAll(filepath.Dir(a.configPath), 0o700); err != nil {
		return err
	}
	out := viper.New()
	out.SetConfigType("yaml")
	out.Set(keyServer, a.v.GetString(keyServer))
	out.Set(keyCustomerID, a.v.GetString(keyCustomerID))
	out.Set(keyToken, a.v.GetString(keyToken))
	return out.WriteConfigAs(a.configPath)
}

func (a *app) client() *client.Client {
	return a.newClient(a.v.GetString(keyServer), a.v.GetString(keyToken))
}
