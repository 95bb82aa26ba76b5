package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/Boardroom/internal/adapter/postgres"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
)

// runAdmin dispatches admin subcommands (migrate-status, rollback, tree, patterns).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "tree":
		return runAdminTree(args[1:])
	case "patterns":
		return runAdminPatterns(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: boardroom admin <command> [options]

Commands:
  migrate-status   Show the applied schema version
  rollback         Roll back schema migrations
  tree             Show a pitch and all of its revisions
  patterns         List learned patterns
  help             Show this help message

Output is a table on a terminal and JSON otherwise.

Examples:
  boardroom admin migrate-status
  boardroom admin rollback --steps 1
  boardroom admin tree --id 6f1c...
  boardroom admin patterns --min-confidence 0.8 --limit 20
`)
}

func loadAdminConfig() (*config.Config, error) {
	cfg, _, err := config.LoadWithCLI(config.CLIFlags{})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func loadAdminStore(ctx context.Context) (*postgres.Store, func(), error) {
	cfg, err := loadAdminConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Printf("schema version: %d\n", version)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	if !*yes {
		ok, err := confirm(fmt.Sprintf("Roll back %d migration(s)? [y/N] ", *steps))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *steps)
	return nil
}

func runAdminTree(args []string) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	id := fs.String("id", "", "root pitch id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	ctx := context.Background()
	store, cleanup, err := loadAdminStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := store.ListTree(ctx, *id)
	if err != nil {
		return fmt.Errorf("list tree: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No revisions found.")
		return nil
	}
	if !isTerminal() {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REV\tID\tSTATUS\tSCORE\tAUTHOR\tTITLE")
	for i := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			records[i].RevisionNumber, records[i].ID, records[i].Status, records[i].NetScore,
			records[i].AuthorAgentID, records[i].Title)
	}
	return w.Flush()
}

func runAdminPatterns(args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	minConf := fs.Float64("min-confidence", pattern.MinConfidence, "lowest confidence to list")
	limit := fs.Int("limit", 20, "maximum patterns to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	store, cleanup, err := loadAdminStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	patterns, err := store.ListPatterns(ctx, *minConf, *limit)
	if err != nil {
		return fmt.Errorf("list patterns: %w", err)
	}
	if !isTerminal() {
		return json.NewEncoder(os.Stdout).Encode(patterns)
	}
	if len(patterns) == 0 {
		fmt.Println("No patterns found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tCONFIDENCE\tTAG\tCREATED\tCONTENT")
	for i := range patterns {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n",
			patterns[i].PatternType, patterns[i].Confidence, patterns[i].ContextTag,
			patterns[i].CreatedAt.Format("2006-01-02"), patterns[i].Content)
	}
	return w.Flush()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}

// confirm asks a yes/no question on the terminal.
func confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec // fd fits in int
		return false, fmt.Errorf("refusing to prompt without a terminal; pass --yes")
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
