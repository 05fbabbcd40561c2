package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/supplychain/internal/app"
	"github.com/agenthands/supplychain/internal/config"
	"github.com/agenthands/supplychain/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "supplychain",
		Short: "Load a supply-chain catalog into Neo4j and ask questions about it",
		Long: `supplychain loads entity and relationship CSV files into a Neo4j graph
authenticated with Azure AD, embeds supplier descriptions, and answers
natural-language questions through a function-calling language model.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config.toml (default $CONFIG_PATH or config/config.toml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading config")

	constraintsCmd := &cobra.Command{
		Use:   "constraints",
		Short: "Create the per-label id uniqueness constraints",
		RunE:  runConstraints,
	}

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load the entity and relationship CSV files",
		RunE:  runLoad,
	}
	loadCmd.Flags().String("nodes", "", "Entities CSV (overrides catalog.nodes_csv)")
	loadCmd.Flags().String("relationships", "", "Relationships CSV (overrides catalog.relationships_csv)")
	loadCmd.Flags().Bool("embed", false, "Embed supplier descriptions after loading")

	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Create the vector index and embed supplier descriptions",
		RunE:  runEmbed,
	}
	embedCmd.Flags().Bool("force", false, "Embed pending suppliers even if some embeddings already exist")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question; without an argument, read questions interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().Bool("json", false, "Print the answer with its transcript as JSON")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every node and relationship in the database",
		RunE:  runPurge,
	}
	purgeCmd.Flags().Bool("yes", false, "Confirm deletion")

	rootCmd.AddCommand(constraintsCmd, loadCmd, embedCmd, askCmd, purgeCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads environment and config, then wires the application. The
// returned cleanup closes the driver and flushes the logger.
func setup(cmd *cobra.Command) (*app.App, func(), error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("Failed to close driver", "error", err)
		}
		log.Sync()
	}
	return a, cleanup, nil
}

func runConstraints(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Loader.CreateConstraints(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Constraints created.")
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	nodes, _ := cmd.Flags().GetString("nodes")
	relationships, _ := cmd.Flags().GetString("relationships")
	entities, relations, err := a.LoadCatalog(cmd.Context(), nodes, relationships)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d entities and %d relationships.\n", entities, relations)

	if embed, _ := cmd.Flags().GetBool("embed"); embed {
		n, err := a.EnsureEmbeddings(cmd.Context(), false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d suppliers.\n", n)
	}
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	force, _ := cmd.Flags().GetBool("force")
	n, err := a.EnsureEmbeddings(cmd.Context(), force)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d suppliers.\n", n)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := prepareEmbeddings(cmd, a); err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	ask := func(question string) error {
		answer, err := a.Agent.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		}
		fmt.Fprintf(out, "Answer: %s\n", answer.Text)
		return nil
	}

	if len(args) == 1 {
		return ask(args[0])
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nEnter your question (or 'exit' to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(question); err != nil {
			return err
		}
	}
}

// prepareEmbeddings backfills supplier embeddings before the first question
// when none exist yet, so description searches have something to match.
func prepareEmbeddings(cmd *cobra.Command, a *app.App) error {
	if a.Loader.Embedder == nil {
		a.Log.Warn("No embedding model configured, description search is disabled")
		return nil
	}
	n, err := a.EnsureEmbeddings(cmd.Context(), false)
	if err != nil {
		return err
	}
	if n > 0 {
		a.Log.Info("Created missing supplier embeddings", "count", n)
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to delete the whole database without --yes")
	}

	a, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Loader.Purge(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database purged.")
	return nil
}
