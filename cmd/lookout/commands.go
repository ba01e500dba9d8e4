package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lookout/internal/config"
	"lookout/internal/logging"
	"lookout/internal/producer"
	"lookout/internal/remote"
	"lookout/internal/runtime"
	"lookout/internal/store"
	"lookout/internal/types"
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lookout %s (build %s, %s)\n", Version, Build, BuildTime)
	},
}

func openStore(cfg config.Config) (store.AccountStore, error) {
	dsn, err := cfg.StoreDSN()
	if err != nil {
		return nil, err
	}
	return store.Open(dsn)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synchronizer for all stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel()))

		accounts, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer accounts.Close()

		itemsDir, err := config.ItemsDir()
		if err != nil {
			return err
		}
		cachePath, err := config.CachePath()
		if err != nil {
			return err
		}

		rt, err := runtime.New(runtime.Options{
			API:             remote.New(cfg.ServiceBaseURL(), log),
			Store:           accounts,
			ItemsDir:        itemsDir,
			CachePath:       cachePath,
			TickInterval:    cfg.TickInterval(),
			ScanConcurrency: cfg.ScanConcurrency(),
			Logger:          log,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return rt.Run(ctx)
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		accounts, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer accounts.Close()

		names, err := accounts.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-account snapshot status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		accounts, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer accounts.Close()

		ctx := cmd.Context()
		names, err := accounts.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tIDENTITY\tWORKSPACES\tCHANNELS\tSCANNED\tFORBIDDEN")
		for _, name := range names {
			account, ok, err := accounts.Load(ctx, name)
			if err != nil {
				fmt.Fprintf(w, "%s\t(unreadable: %v)\t\t\t\t\n", name, err)
				continue
			}
			if !ok {
				continue
			}
			snap := account.Snapshot
			scanned, forbidden := 0, 0
			for _, ch := range snap.Channels {
				switch {
				case ch.Fetch.Phase == types.FetchForbidden:
					forbidden++
				case !ch.Fetch.InInitialScan():
					scanned++
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
				name, snap.Identity.DisplayName(),
				len(snap.Workspaces), len(snap.Channels), scanned, forbidden)
		}
		return w.Flush()
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <account> [credential]",
	Short: "Store a credential for an account",
	Long: `Store a credential for a named account. The credential can be passed as
the second argument or via the LOOKOUT_CREDENTIAL environment variable.
The account starts synchronizing on the next run.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		credential := ""
		if len(args) == 2 {
			credential = strings.TrimSpace(args[1])
		}
		if credential == "" {
			credential = strings.TrimSpace(os.Getenv("LOOKOUT_CREDENTIAL"))
		}
		if credential == "" {
			return errors.New("credential required (argument or LOOKOUT_CREDENTIAL)")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		accounts, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer accounts.Close()

		ctx := cmd.Context()
		// Confirm the credential before storing it.
		client := remote.New(cfg.ServiceBaseURL(), logging.Nop())
		identity, err := client.Identify(ctx, credential)
		if err != nil {
			return fmt.Errorf("credential rejected: %w", err)
		}

		account := producer.PersistedAccount{
			Credential: credential,
			Snapshot: &types.Snapshot{
				Credential: credential,
				Identity:   identity,
				Workspaces: map[string]types.Workspace{},
				Channels:   map[string]types.Channel{},
			},
		}
		if err := accounts.Save(ctx, name, account); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", identity.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <account>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		accounts, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer accounts.Close()

		name := strings.TrimSpace(args[0])
		if err := accounts.Delete(cmd.Context(), name); err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return fmt.Errorf("no such account %q", name)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
		return nil
	},
}
