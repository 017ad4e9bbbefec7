package adminclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// Exit codes for the gatewayctl process.
const (
	ExitSuccess  = 0
	ExitUsage    = 1
	ExitGateway  = 2
	ExitInternal = 3
)

// CLI holds gatewayctl's command-line state.
type CLI struct {
	rootCmd *cobra.Command

	endpoint   string
	jsonOutput bool
	client     *Client
}

// NewCLI builds the gatewayctl root command.
func NewCLI() *CLI {
	c := &CLI{}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the CLI and returns a process exit code.
func (c *CLI) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return ExitInternal
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Administer a running trino-gateway instance",
		Long: `gatewayctl is a client for the trino-gateway admin API: list and edit
backend definitions and trigger a routing-rules reload on a live gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.client = New(c.endpoint)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.endpoint, "endpoint", "http://localhost:8081", "gateway admin API endpoint")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")

	cmd.AddCommand(c.newBackendCmd())
	cmd.AddCommand(c.newRulesCmd())

	return cmd
}

func (c *CLI) newBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Manage gateway backends",
	}
	cmd.AddCommand(c.newBackendListCmd())
	cmd.AddCommand(c.newBackendGetCmd())
	cmd.AddCommand(c.newBackendSetCmd())
	cmd.AddCommand(c.newBackendDeleteCmd())
	return cmd
}

func (c *CLI) newBackendListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured backends and their health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			backends, err := c.client.ListBackends(ctx)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.outputJSON(backends)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGROUP\tACTIVE\tREACHABLE\tQUEUE\tPROXY TO")
			for _, b := range backends {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%d\t%s\n", b.Name, b.RoutingGroup, b.Active, b.Reachable, b.QueueDepth, b.ProxyTo)
			}
			return w.Flush()
		},
	}
}

func (c *CLI) newBackendGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one backend's definition and health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			b, err := c.client.GetBackend(ctx, args[0])
			if err != nil {
				return err
			}
			return c.outputJSON(b)
		},
	}
}

func (c *CLI) newBackendSetCmd() *cobra.Command {
	var proxyTo, externalURL, routingGroup string
	var active, deepProbe bool

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Add or replace a backend definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return c.client.UpsertBackend(ctx, args[0], UpsertBackendRequest{
				ProxyTo:      proxyTo,
				ExternalURL:  externalURL,
				RoutingGroup: routingGroup,
				Active:       active,
				DeepProbe:    deepProbe,
			})
		},
	}
	cmd.Flags().StringVar(&proxyTo, "proxy-to", "", "internal URL the gateway forwards requests to")
	cmd.Flags().StringVar(&externalURL, "external-url", "", "the backend's own externally-advertised URL")
	cmd.Flags().StringVar(&routingGroup, "routing-group", "adhoc", "routing group this backend serves")
	cmd.Flags().BoolVar(&active, "active", true, "whether the backend accepts new traffic")
	cmd.Flags().BoolVar(&deepProbe, "deep-probe", false, "supplement health checks with a SQL-driver liveness query")
	return cmd
}

func (c *CLI) newBackendDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return c.client.DeleteBackend(ctx, args[0])
		},
	}
}

func (c *CLI) newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the routing rules engine",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Reload the rules file from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			return c.client.ReloadRules(ctx)
		},
	})
	return cmd
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
