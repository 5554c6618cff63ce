package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pbaille/kbtags/internal/api"
	"github.com/pbaille/kbtags/internal/config"
	"github.com/pbaille/kbtags/internal/domain"
	"github.com/pbaille/kbtags/internal/logging"
	"github.com/pbaille/kbtags/internal/store"
	"github.com/pbaille/kbtags/internal/tagclient"
	"github.com/pbaille/kbtags/internal/tagedit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries state resolved once per invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logs    *logging.Root
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:          "kb",
		Short:        "Knowledge base with tag management",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logs = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default ~/.kb/kb.yaml)")
	flags.String("db", "", "database path")
	flags.String("server", "", "kb API base URL; tag changes go through it instead of the local database")
	flags.Duration("debounce", 0, "quiet window before a delete fires")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	c.bind(flags.Lookup("db"), config.KeyDB)
	c.bind(flags.Lookup("server"), config.KeyServer)
	c.bind(flags.Lookup("debounce"), config.KeyDeleteDebounce)
	c.bind(flags.Lookup("log-level"), config.KeyLogLevel)

	rootCmd.AddCommand(c.addCmd())
	rootCmd.AddCommand(c.listCmd())
	rootCmd.AddCommand(c.showCmd())
	rootCmd.AddCommand(c.tagsCmd())
	rootCmd.AddCommand(c.searchCmd())
	rootCmd.AddCommand(c.serveCmd())

	return rootCmd
}

func (c *cli) bind(f *pflag.Flag, key string) {
	if err := c.v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func (c *cli) getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(c.cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(c.cfg.DBPath)
}

// tagBackend is where tag changes are confirmed: the local database or a
// remote kb server.
type tagBackend interface {
	tagedit.Remote
	ListTags(ctx context.Context) ([]domain.Tag, error)
	Close() error
}

type localBackend struct {
	*store.Store
}

func (b localBackend) ListTags(context.Context) ([]domain.Tag, error) {
	return b.Store.ListTags()
}

type remoteBackend struct {
	*tagclient.Client
}

func (remoteBackend) Close() error { return nil }

func (c *cli) tagBackend() (tagBackend, error) {
	if c.cfg.Server != "" {
		return remoteBackend{tagclient.New(c.cfg.Server, nil)}, nil
	}
	s, err := c.getStore()
	if err != nil {
		return nil, err
	}
	return localBackend{s}, nil
}

func (c *cli) addCmd() *cobra.Command {
	var tagNames []string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a new entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")

			s, err := c.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.AddEntry(content)
			if err != nil {
				return err
			}

			fmt.Printf("Added entry: %s\n", entry.ID[:8])
			fmt.Printf("Content: %s\n", truncate(entry.Content, 80))

			for _, name := range tagNames {
				tag, err := s.GetOrCreateTag(name, nil)
				if err != nil {
					fmt.Printf("  warning: couldn't create tag %s: %v\n", name, err)
					continue
				}

				if err := s.LinkEntryTag(entry.ID, tag.ID); err != nil {
					fmt.Printf("  warning: couldn't link tag %s: %v\n", name, err)
					continue
				}

				fmt.Printf("  + %s\n", tag.Name)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tagNames, "tag", "t", nil, "tag to link (repeatable)")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ListEntries(limit, 0)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Use 'kb add' to create one.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s\n", e.ID[:8], truncate(e.Content, 60))
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			// Find entry by prefix
			entries, err := s.ListEntries(100, 0)
			if err != nil {
				return err
			}

			var found *string
			for _, e := range entries {
				if strings.HasPrefix(e.ID, args[0]) {
					found = &e.ID
					break
				}
			}

			if found == nil {
				return fmt.Errorf("entry not found: %s", args[0])
			}

			entry, err := s.GetEntry(*found)
			if err != nil {
				return err
			}

			fmt.Printf("ID:      %s\n", entry.ID)
			fmt.Printf("Created: %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Content:\n%s\n", entry.Content)

			if len(entry.Tags) > 0 {
				fmt.Printf("\nTags:\n")
				for _, t := range entry.Tags {
					fmt.Printf("  - %s\n", t.Name)
				}
			}

			return nil
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.SearchEntries(args[0])
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No matching entries found.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s\n", e.ID[:8], truncate(e.Content, 60))
			}

			return nil
		},
	}
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			server := api.New(s, c.cfg.Addr, c.logs.Component("api"))
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringP("addr", "a", "", "server address (default :8080)")
	c.bind(cmd.Flags().Lookup("addr"), config.KeyAddr)
	return cmd
}
