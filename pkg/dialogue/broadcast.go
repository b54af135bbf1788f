package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telemart/telemart/pkg/domain"
)

// runBroadcast fans the announcement out to a point-in-time snapshot of the
// user base. Users registering mid-broadcast are not included. Deliveries run
// on a bounded worker set with a fixed delay between sends; one failed
// recipient never affects the others.
func (e *Engine) runBroadcast(ctx context.Context, admin *domain.User, sess *domain.Session, text string) error {
	sess.ClearStep()
	if text == "" {
		e.prompt(ctx, sess, "The announcement is empty. Type the message to send:", cancelRow())
		return nil
	}

	users, err := e.commerce.Users(ctx)
	if err != nil {
		return err
	}
	recipients := make([]int64, 0, len(users))
	for id := range users {
		if id == admin.ID {
			continue
		}
		recipients = append(recipients, id)
	}

	e.prompt(ctx, sess, fmt.Sprintf("Broadcasting to %d users...", len(recipients)), nil)
	sent, failed := e.deliverBroadcast(ctx, recipients, text)

	e.logger.Info("broadcast finished", "recipients", len(recipients), "sent", sent, "failed", failed)
	e.prompt(ctx, sess, fmt.Sprintf("Broadcast done: %d delivered, %d failed.", sent, failed), adminBackRow())
	return nil
}

func (e *Engine) deliverBroadcast(ctx context.Context, recipients []int64, text string) (sent, failed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	jobs := make(chan int64)

	workers := e.broadcastWorkers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for to := range jobs {
				_, err := e.messenger.SendMessage(ctx, to, text, nil)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					sent++
				}
				mu.Unlock()
				if err != nil {
					e.logger.Warn("broadcast delivery failed", "to", to, "err", err)
				}
				select {
				case <-time.After(e.broadcastDelay):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, to := range recipients {
		select {
		case jobs <- to:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return sent, failed
		}
	}
	close(jobs)
	wg.Wait()
	return sent, failed
}
