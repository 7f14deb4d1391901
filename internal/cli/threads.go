package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adntgv/gptree/pkg/models"
)

func init() {
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List all threads as a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		threads, err := client().ListThreads()
		if err != nil {
			return err
		}
		printTree(threads)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new root thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := client().CreateThread(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created %s %q\n", th.ID, th.Title)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Show one thread's messages and summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := client().GetThread(args[0])
		if err != nil {
			return err
		}
		printThread(th)
		return nil
	},
}

// printTree renders roots first, children indented under their parent.
func printTree(threads []*models.Thread) {
	byID := make(map[string]*models.Thread, len(threads))
	for _, th := range threads {
		byID[th.ID] = th
	}
	var roots []*models.Thread
	for _, th := range threads {
		if th.ParentID == "" || byID[th.ParentID] == nil {
			roots = append(roots, th)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].CreatedTS < roots[j].CreatedTS })
	for _, root := range roots {
		printNode(byID, root, 0)
	}
}

func printNode(byID map[string]*models.Thread, th *models.Thread, depth int) {
	marks := ""
	if th.HasPendingWork {
		marks += " [working]"
	}
	if th.HasError {
		marks += " [error]"
	}
	fmt.Printf("%s%s %q (%d messages)%s\n",
		strings.Repeat("  ", depth), th.ID, th.Title, len(th.Messages), marks)
	for _, childID := range th.Children {
		if child := byID[childID]; child != nil {
			printNode(byID, child, depth+1)
		}
	}
}

func printThread(th *models.Thread) {
	fmt.Printf("%s %q\n", th.ID, th.Title)
	if th.ParentID != "" {
		fmt.Printf("parent: %s", th.ParentID)
		if th.ForkPointMessageID != "" {
			fmt.Printf(" (forked at %s)", th.ForkPointMessageID)
		}
		fmt.Println()
	}
	if th.Summary != "" {
		fmt.Printf("summary: %s\n", th.Summary)
	}
	fmt.Println()
	for _, m := range th.Messages {
		status := ""
		if m.Status != models.StatusCompleted {
			status = " <" + string(m.Status) + ">"
		}
		if m.Status == models.StatusError && m.Error != "" {
			status += " " + m.Error
		}
		fmt.Printf("[%s] %s%s\n", m.Author, m.Text, status)
	}
}
