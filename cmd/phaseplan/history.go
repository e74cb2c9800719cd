// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/phaseplan/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded sessions, verdicts and terms",
	Long: `History reads the run store. Use subcommands to list sessions, show the
verdicts of one session, search recorded terms, or delete a session.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return encodeJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-6s  %-5s  %-4s  %s\n", "Session", "Profile", "Terms", "Runs", "Last", "Updated")
	fmt.Println(strings.Repeat("-", 100))
	for _, s := range sessions {
		last := dimColor.Sprint("-")
		if s.LastPassed != nil {
			last = verdict(*s.LastPassed)
		}
		fmt.Printf("%-36s  %-20s  %-6d  %-5d  %-4s  %s\n",
			s.ID, s.Profile, s.Terms, s.Validations, last, s.Updated.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d sessions\n", len(sessions))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show the usage counters and verdicts of one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.LoadSession(ctx, args[0])
	if err != nil {
		return err
	}
	records, err := st.Validations(ctx, sess.ID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return encodeJSON(struct {
			ID          string                   `json:"id"`
			Industry    string                   `json:"industry"`
			Role        string                   `json:"role"`
			Profile     string                   `json:"profile"`
			Usage       map[string]int           `json:"usage"`
			Validations []store.ValidationRecord `json:"validations"`
		}{sess.ID, sess.Industry, sess.Role, sess.Profile, sess.Usage(), records})
	}

	fmt.Printf("Session  %s\nRequest  %s %s\nProfile  %s\nCreated  %s\n\n",
		sess.ID, sess.Industry, sess.Role, sess.Profile, sess.Created.Local().Format("2006-01-02 15:04"))
	fmt.Println("Term usage:")
	for _, term := range sess.Terms() {
		fmt.Printf("  %-30s %d\n", term, sess.Used(term))
	}
	fmt.Println("\nVerdicts:")
	if len(records) == 0 {
		fmt.Println("  none")
	}
	for _, r := range records {
		fmt.Printf("  #%-4d %s  %s  coverage %.2f\n", r.ID, r.Created.Local().Format("2006-01-02 15:04"),
			verdict(r.Result.Passed), r.Result.Metrics.WeightedCoverage)
		for _, e := range r.Result.Errors {
			fmt.Printf("         - %s\n", e)
		}
	}
	return nil
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find recorded vocabulary terms across sessions",
	Long: `Search matches recorded terms by substring. Queries of three or more
characters use the trigram full-text index when SQLite was built with FTS5.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	hits, err := st.SearchTerms(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return encodeJSON(hits)
	}
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%-36s  %-13s  %3d  %s\n", h.SessionID, h.Category, h.Position+1, h.Term)
	}
	fmt.Printf("\n%d results\n", len(hits))
	return nil
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session>...",
	Short: "Delete sessions and everything recorded for them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		for _, id := range args {
			if err := st.DeleteSession(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", id)
		}
		return nil
	},
}

func encodeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum sessions to list (0 = all)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")
	historyShowCmd.Flags().Bool("json", false, "output as JSON")
	historySearchCmd.Flags().Int("limit", 50, "maximum results")
	historySearchCmd.Flags().Bool("json", false, "output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
