package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/config"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/players"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/sync"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "rumorsync",
	Short:   "Real Betis transfer-rumor tracker",
	Long:    "rumorsync aggregates Spanish football feeds, classifies transfer rumors about Real Betis, and maintains a deduplicated player rumor database.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(playersCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("rumorsync", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/rumorsync/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("News:")
		fmt.Printf("  Total: %d\n", stats.TotalNews)
		fmt.Printf("  Transfer rumors: %d\n", stats.TransferRumors)
		fmt.Printf("  Regular news: %d\n", stats.RegularNews)
		fmt.Printf("  Not analyzed: %d\n", stats.NotAnalyzed)
		fmt.Printf("  Hidden: %d\n", stats.Hidden)
		fmt.Printf("  Pending reassessment: %d\n", stats.PendingReassess)
		fmt.Println("\nPlayers:")
		fmt.Printf("  Total: %d\n", stats.TotalPlayers)
		fmt.Printf("  Current squad: %d\n", stats.CurrentSquad)

		last, err := db.GetLastRunReport()
		if err != nil {
			return err
		}
		if last != nil {
			fmt.Println("\nLast sync:")
			fmt.Printf("  Started: %s\n", last.StartedAt)
			fmt.Printf("  Fetched: %d, inserted: %d, duplicates: %d, errors: %d\n",
				last.Fetched, last.Inserted, last.Duplicates, last.Errors)
		}
		return nil
	},
}

// --- sync command ---

var maxAgeHours int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch feeds, classify rumors and update the player database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		maxAge := resolveMaxAge(maxAgeHours, os.Getenv("RUMORSYNC_MAX_AGE_HOURS"), cfg.Sync.MaxAgeHours)
		fmt.Printf("Syncing items from the last %d hours...\n", maxAge)

		report, err := sync.New(cfg, db).Run(context.Background(), maxAge)
		if err != nil {
			return err
		}

		fmt.Println("\nSync complete:")
		fmt.Printf("  Fetched: %d\n", report.Fetched)
		fmt.Printf("  Inserted: %d\n", report.Inserted)
		fmt.Printf("  Duplicates skipped: %d\n", report.Duplicates)
		fmt.Printf("  Transfer rumors: %d\n", report.TransferRumors)
		fmt.Printf("  Regular news: %d\n", report.RegularNews)
		fmt.Printf("  Not analyzed: %d\n", report.NotAnalyzed)
		fmt.Printf("  Auto-hidden: %d\n", report.AutoHidden)
		fmt.Printf("  Players processed: %d\n", report.PlayersProcessed)
		fmt.Printf("  Reassessed: %d\n", report.Reassessed)

		if report.Errors > 0 {
			return fmt.Errorf("sync finished with %d errors", report.Errors)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Override feed item age window (hours)")
}

// resolveMaxAge picks the age window: explicit flag, then environment,
// then config default.
func resolveMaxAge(flagValue int, envValue string, configDefault int) int {
	if flagValue > 0 {
		return flagValue
	}
	if flagValue < 0 {
		log.Printf("Ignoring invalid --max-age-hours=%d", flagValue)
	}
	if envValue != "" {
		if n, err := strconv.Atoi(envValue); err == nil && n > 0 {
			return n
		}
		log.Printf("Ignoring invalid RUMORSYNC_MAX_AGE_HOURS=%q", envValue)
	}
	if configDefault > 0 {
		return configDefault
	}
	return 24
}

// --- news command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Manage stored news records",
}

var adminContext string

var newsReassessCmd = &cobra.Command{
	Use:   "reassess [id]",
	Short: "Flag a record for re-analysis with administrator context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		if err := db.FlagForReassessment(id, adminContext); err != nil {
			return err
		}
		fmt.Printf("News [%d] flagged for reassessment on the next sync.\n", id)
		return nil
	},
}

func init() {
	newsReassessCmd.Flags().StringVar(&adminContext, "context", "", "Context note for the re-analysis")
}

var newsHideCmd = &cobra.Command{
	Use:   "hide [id]",
	Short: "Hide a record from the feed",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setHidden(args[0], true) },
}

var newsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Unhide a record",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setHidden(args[0], false) },
}

var newsSetProbabilityCmd = &cobra.Command{
	Use:   "set-probability [id] [0-100]",
	Short: "Override the rumor probability of a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		prob, err := strconv.Atoi(args[1])
		if err != nil || prob < 0 || prob > 100 {
			return fmt.Errorf("probability must be 0-100, got %s", args[1])
		}

		item, err := db.GetNewsByID(id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("news %d not found", id)
		}

		if err := db.SetProbability(id, prob); err != nil {
			return err
		}
		fmt.Printf("News [%d] probability set to %d.\n", id, prob)
		return nil
	},
}

func setHidden(arg string, hidden bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := parseID(arg)
	if err != nil {
		return err
	}
	item, err := db.GetNewsByID(id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("news %d not found", id)
	}

	if err := db.SetHidden(id, hidden); err != nil {
		return err
	}
	state := "visible"
	if hidden {
		state = "hidden"
	}
	fmt.Printf("News [%d] is now %s: %s\n", id, state, item.Title)
	return nil
}

// --- players command ---

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Manage the player database",
}

var playersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all players by rumor count",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetAllPlayers()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No players recorded yet. Run 'rumorsync sync' first.")
			return nil
		}

		fmt.Println("Players:")
		fmt.Println()
		for _, p := range items {
			icon := " "
			if p.IsCurrentSquad {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s (%d rumors)\n", p.ID, icon, p.Name, p.RumorCount)
			if len(p.Aliases) > 0 {
				fmt.Printf("        aka: %s\n", strings.Join(p.Aliases, ", "))
			}
		}
		return nil
	},
}

var playersMergeCmd = &cobra.Command{
	Use:   "merge [primary-id] [duplicate-id]",
	Short: "Merge a duplicate player into the primary record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		primaryID, err := parseID(args[0])
		if err != nil {
			return err
		}
		duplicateID, err := parseID(args[1])
		if err != nil {
			return err
		}

		moved, err := players.NewResolver(db).Merge(primaryID, duplicateID)
		if err != nil {
			return err
		}
		fmt.Printf("Merged player [%d] into [%d], %d links transferred.\n", duplicateID, primaryID, moved)
		return nil
	},
}

var playersSquadCmd = &cobra.Command{
	Use:   "squad [name]...",
	Short: "Mark the listed players as current squad members",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		normalized := make([]string, 0, len(args))
		for _, name := range args {
			n := players.Normalize(name)
			if n == "" {
				return fmt.Errorf("invalid player name: %q", name)
			}
			normalized = append(normalized, n)
		}

		if err := db.SetCurrentSquad(normalized); err != nil {
			return err
		}
		fmt.Printf("Squad updated: %d players marked.\n", len(normalized))
		return nil
	},
}

func init() {
	newsCmd.AddCommand(newsReassessCmd)
	newsCmd.AddCommand(newsHideCmd)
	newsCmd.AddCommand(newsShowCmd)
	newsCmd.AddCommand(newsSetProbabilityCmd)

	playersCmd.AddCommand(playersListCmd)
	playersCmd.AddCommand(playersMergeCmd)
	playersCmd.AddCommand(playersSquadCmd)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %s", arg)
	}
	return id, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "rumorsync.db")
	return database.Open(dbPath)
}
