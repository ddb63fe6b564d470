package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/techagentng/clubhub/cmd/clubctl/internal"
	"github.com/techagentng/clubhub/events"
	"github.com/techagentng/clubhub/logger"
	"github.com/techagentng/clubhub/models"
	"github.com/techagentng/clubhub/poller"
)

func NewWatchCommand() *cobra.Command {
	var (
		thread         string
		threadInterval time.Duration
		unreadInterval time.Duration
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a thread and your unread counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := internal.NewClient()
			if err != nil {
				return err
			}
			log := logger.New(debug)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dispatcher := events.NewDispatcher()
			defer dispatcher.Close()

			p := poller.New(c, &printer{out: cmd.OutOrStdout()}, dispatcher, poller.Options{
				ThreadInterval: threadInterval,
				UnreadInterval: unreadInterval,
				Logger:         log,
			})
			if thread != "" {
				t, err := models.ParseThread(thread)
				if err != nil {
					return err
				}
				p.SetActiveThread(t)
			}
			p.Start(ctx)
			<-ctx.Done()
			p.Stop()
			if err := ctx.Err(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&thread, "thread", "", "thread to follow: direct:<userId>, category:<id> or team:<id>")
	cmd.Flags().DurationVar(&threadInterval, "interval", poller.DefaultThreadInterval, "active thread refresh interval")
	cmd.Flags().DurationVar(&unreadInterval, "unread-interval", poller.DefaultUnreadInterval, "unread map refresh interval")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

// printer prints only what changed since the previous refresh. Threads are
// ordered by created_at, so ids are not monotonic and each printed id is kept.
type printer struct {
	out     io.Writer
	thread  models.Thread
	printed map[uint]struct{}
	unread  string
}

func (p *printer) ShowMessages(thread models.Thread, messages []models.Message) {
	if thread != p.thread || p.printed == nil {
		p.thread, p.printed = thread, make(map[uint]struct{}, len(messages))
		fmt.Fprintf(p.out, "== %s ==\n", thread)
	}
	for _, m := range messages {
		if _, seen := p.printed[m.ID]; seen {
			continue
		}
		sender := fmt.Sprintf("#%d", m.SenderID)
		if m.Sender != nil {
			sender = m.Sender.Fullname
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), sender, m.Content)
		p.printed[m.ID] = struct{}{}
	}
}

func (p *printer) ShowUnread(unread map[uint]int64) {
	ids := make([]uint, 0, len(unread))
	for id := range unread {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	line := "unread:"
	for _, id := range ids {
		line += fmt.Sprintf(" direct:%d=%d", id, unread[id])
	}
	if len(ids) == 0 {
		line += " none"
	}
	if line != p.unread {
		p.unread = line
		fmt.Fprintln(p.out, line)
	}
}
