package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	branchTitle string
	forkTitle   string
)

func init() {
	branchCmd.Flags().StringVarP(&branchTitle, "title", "t", "", "title for the new thread")
	forkCmd.Flags().StringVarP(&forkTitle, "title", "t", "", "title for the new thread")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(forkCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(retitleCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [thread-id] [text]",
	Short: "Send a message and queue a reply",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ack, err := client().Send(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("accepted: job %s, reply message %s\n", ack.JobID, ack.PendingMessage.ID)
		return nil
	},
}

var branchCmd = &cobra.Command{
	Use:   "branch [thread-id]",
	Short: "Branch a thread, copying its full history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := client().Branch(args[0], branchTitle)
		if err != nil {
			return err
		}
		fmt.Printf("created %s %q from %s\n", th.ID, th.Title, th.ParentID)
		return nil
	},
}

var forkCmd = &cobra.Command{
	Use:   "fork [thread-id] [message-id]",
	Short: "Fork a thread at a message, copying history up to it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := client().Fork(args[0], args[1], forkTitle)
		if err != nil {
			return err
		}
		fmt.Printf("created %s %q from %s at %s\n", th.ID, th.Title, th.ParentID, th.ForkPointMessageID)
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [thread-id] [message-id]",
	Short: "Retry a failed assistant message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := client().Retry(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("accepted: job %s\n", jobID)
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [thread-id]",
	Short: "Queue summary regeneration for a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := client().Summarize(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("accepted: job %s\n", jobID)
		return nil
	},
}

var retitleCmd = &cobra.Command{
	Use:   "retitle [thread-id]",
	Short: "Queue title regeneration for a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, err := client().Retitle(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("accepted: job %s\n", jobID)
		return nil
	},
}
