package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/reconcile"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [thread-id]",
	Short: "Follow live events, optionally focused on one thread",
	Long: `watch subscribes to the server's event stream and keeps a local
replica of the thread tree. The replica is seeded from a full state pull
before events apply, so events arriving duplicated or out of order
converge on the same state the server holds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client()

		// Connect first, then seed. Events that raced the seed are
		// reapplied idempotently on top of it.
		ws, err := dialEvents(serverURL)
		if err != nil {
			return err
		}
		defer ws.Close()

		threads, err := c.ListThreads()
		if err != nil {
			return err
		}
		replica := reconcile.NewReplica()
		replica.Seed(threads)
		if len(args) == 1 {
			replica.View(args[0])
		}
		fmt.Printf("watching %d threads; ctrl-c to stop\n", len(threads))

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		events := make(chan models.Event)
		errs := make(chan error, 1)
		go func() {
			for {
				_, data, err := ws.ReadMessage()
				if err != nil {
					errs <- err
					return
				}
				var ev models.Event
				if err := json.Unmarshal(data, &ev); err != nil {
					continue
				}
				events <- ev
			}
		}()

		for {
			select {
			case <-sigc:
				return nil
			case err := <-errs:
				return fmt.Errorf("event stream closed: %w", err)
			case ev := <-events:
				replica.Apply(ev)
				printEvent(replica, ev, args)
			}
		}
	},
}

func dialEvents(base string) (*websocket.Conn, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/v1/events"
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", u.String(), err)
	}
	return ws, nil
}

// printEvent reports the replica's post-apply view of the affected
// thread. With a focus thread, events elsewhere are summarized as a
// one-line unread notice.
func printEvent(replica *reconcile.Replica, ev models.Event, args []string) {
	payload, err := ev.Decode()
	if err != nil {
		return
	}
	var threadID string
	switch p := payload.(type) {
	case models.MessageEvent:
		threadID = p.ThreadID
	case models.StatusEvent:
		threadID = p.ThreadID
	case models.SummaryEvent:
		threadID = p.ThreadID
	case models.ThreadEvent:
		threadID = p.Thread.ID
	}
	th := replica.Thread(threadID)
	if th == nil {
		return
	}

	focused := len(args) == 1
	if focused && threadID != args[0] {
		if th.HasUnread {
			fmt.Printf("* unread activity in %s %q\n", th.ID, th.Title)
		}
		return
	}

	switch p := payload.(type) {
	case models.MessageEvent:
		text := p.Message.Text
		if len(text) > 80 {
			text = text[:77] + "..."
		}
		fmt.Printf("[%s] %s: %s (%s)\n", th.ID, p.Message.Author, strings.TrimSpace(text), p.Message.Status)
	case models.StatusEvent:
		line := fmt.Sprintf("[%s] message %s -> %s", th.ID, p.MessageID, p.Status)
		if p.Error != "" {
			line += ": " + p.Error
		}
		fmt.Println(line)
	case models.SummaryEvent:
		fmt.Printf("[%s] summary: %s\n", th.ID, p.Summary)
	case models.ThreadEvent:
		fmt.Printf("[%s] thread %q updated (%d messages, %d children)\n",
			th.ID, th.Title, len(th.Messages), len(th.Children))
	}
}
