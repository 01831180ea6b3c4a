package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"fruity/cmd/fruity/ui"
	"fruity/internal/remote"
	"fruity/internal/types"

	"github.com/spf13/cobra"
)

// syncCmd runs one load cycle
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the log collection from the backend",
	Long: `Runs one load cycle against the backend and prints every state
transition. A sleeping backend is retried (it may take a while to wake up);
a 404 means the URL is wrong and fails immediately.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// addCmd logs a tasting
var addCmd = &cobra.Command{
	Use:   "add <fruit>",
	Short: "Log a fruit tasting",
	Long: `Validates the fruit against the catalog of the active language,
posts the entry once and reloads the collection.

Example:
  fruity add Pomme --rating 5 --origin "Île d'Orléans" --store "Marché Jean-Talon"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// rmCmd deletes a log
var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a log entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var (
	addRating int
	addDate   string
	addOrigin string
	addStore  string
	rmYes     bool
)

func init() {
	addCmd.Flags().IntVarP(&addRating, "rating", "r", 0, "Rating from 1 to 5 (required)")
	addCmd.Flags().StringVar(&addDate, "date", "", "Tasting date YYYY-MM-DD (default: today)")
	addCmd.Flags().StringVar(&addOrigin, "origin", "", "Where the fruit was grown")
	addCmd.Flags().StringVar(&addStore, "store", "", "Where it was bought")
	_ = addCmd.MarkFlagRequired("rating")

	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Do not ask for confirmation")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	unsubscribe := a.ctrl.Subscribe(func(s remote.Snapshot) {
		line := s.State.String()
		if s.Waking {
			line = fmt.Sprintf("%s (%s retry %d)", line, ui.T(a.lang, ui.KeyServerWaking), s.Retries)
		}
		fmt.Fprintf(out, "→ %s\n", line)
	})
	defer unsubscribe()

	logs, err := a.load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d logs from %s\n", len(logs), a.ctrl.Endpoint())
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fruit := strings.TrimSpace(args[0])
	if err := a.catalog.Validate(fruit, a.lang); err != nil {
		return err
	}
	entry := types.NewLogEntry{
		Fruit:  fruit,
		Origin: addOrigin,
		Store:  addStore,
		Rating: addRating,
		Date:   addDate,
	}.Normalize(time.Now(), a.region)
	if err := entry.Validate(); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	created, err := a.ctrl.Create(ctx, entry)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s #%s: %s %s (%s)\n", ui.T(a.lang, ui.KeySaved), created.ID, entry.Fruit, ui.Stars(entry.Rating), entry.Date)
	if snap := a.ctrl.Snapshot(); snap.State == remote.StateSuccess {
		fmt.Fprintln(out, ui.Tf(a.lang, ui.KeyEntries, "n", fmt.Sprint(len(snap.Logs))))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	id := types.LogID(strings.TrimSpace(args[0]))
	if id == "" {
		return &types.ValidationError{Field: "id", Reason: "required"}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if !rmYes {
		fmt.Fprintf(out, "#%s: %s ", id, ui.T(a.lang, ui.KeyConfirmDelete))
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "o", "oui":
		default:
			fmt.Fprintln(out, "cancelled")
			return nil
		}
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	if err := a.ctrl.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s #%s\n", ui.T(a.lang, ui.KeyDeleted), id)
	return nil
}
