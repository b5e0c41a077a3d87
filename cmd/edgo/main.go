// Command edgo is a small CLI over the edgo library: resolve tickers to
// CIKs and fetch documents from the SEC API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/edgolib/edgo"
	"github.com/edgolib/edgo/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "edgo",
		Short:         "Compliant SEC EDGAR data-access client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.edgo.yaml)")
	flags.String("user-agent", "", "identifying User-Agent, e.g. \"MyApp admin@example.com\"")
	flags.Float64("rps", 10, "request budget in requests per second")
	flags.Duration("timeout", 30*time.Second, "per-attempt request timeout")
	flags.String("db", "", "path to the durable ticker store (optional)")
	flags.Bool("verbose", false, "enable debug logging")

	for _, name := range []string{"user-agent", "rps", "timeout", "db", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newCIKCmd(v), newFetchCmd(v), newVersionCmd())
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".edgo")
			v.SetConfigType("yaml")
		}
	}
	v.SetEnvPrefix("EDGO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	if v.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newClient(v *viper.Viper, logger *zap.Logger) (*edgo.Client, error) {
	ua := v.GetString("user-agent")
	if ua == "" {
		ua = os.Getenv("EDGO_USER_AGENT")
	}
	cfg := edgo.DefaultConfig(ua)
	cfg.RequestsPerSecond = v.GetFloat64("rps")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.Logger = logger
	return edgo.New(cfg)
}

func newCIKCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cik <ticker>...",
		Short: "Resolve ticker symbols to canonical CIKs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client, err := newClient(v, logger)
			if err != nil {
				return err
			}

			ctx := context.Background()
			tcfg := edgo.TickerCacheConfig{Logger: logger}
			if dbPath := v.GetString("db"); dbPath != "" {
				st, err := store.Open(ctx, dbPath)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				tcfg.Store = st
			}

			tickers := edgo.NewTickerCache(client, tcfg)
			entries, err := tickers.ResolveMany(ctx, args)
			if err != nil && len(entries) == 0 {
				return err
			}

			for _, arg := range args {
				key := arg
				if entry, ok := entries[normalize(key)]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", entry.Ticker, entry.CIK, entry.Title)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tnot found\n", key)
				}
			}
			return nil
		},
	}
}

func newFetchCmd(v *viper.Viper) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a document from an allowed SEC endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client, err := newClient(v, logger)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if output != "" {
				return client.DownloadBytes(ctx, args[0], output)
			}
			text, err := client.FetchText(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the response body to a file")
	return cmd
}

// normalize mirrors the cache's ticker key form so CLI output can line up
// requested arguments with resolved entries.
func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), edgo.GetVersion())
		},
	}
}
