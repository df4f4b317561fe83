package offline

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

var actionMethods = map[string]string{
	ActionCreate: http.MethodPost,
	ActionUpdate: http.MethodPut,
	ActionDelete: http.MethodDelete,
}

// Replayer drains the queue against the server once connectivity returns.
// Replay is at-least-once: an action is removed only after a confirmed
// success, so a crash mid-replay re-sends it. The mutation layer owns
// idempotency on top of that guarantee.
type Replayer struct {
	queue   *Queue
	baseURL string
	client  *http.Client
}

func NewReplayer(queue *Queue, baseURL string, client *http.Client) *Replayer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Replayer{queue: queue, baseURL: baseURL, client: client}
}

// ReplayAll attempts every pending action in storage order. Each action gets
// its remaining retry budget as backoff attempts; an action that exhausts
// max_retries is abandoned (dead-lettered) rather than retried forever.
// Returns how many actions were replayed and how many were abandoned.
func (r *Replayer) ReplayAll(ctx context.Context) (replayed, abandoned int, err error) {
	actions, err := r.queue.Actions(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, action := range actions {
		remaining := action.MaxRetries - action.RetryCount
		if remaining <= 0 {
			log.Printf("Offline action %s exceeded retry budget (%d), abandoning", action.ID, action.MaxRetries)
			if err := r.queue.RemoveAction(ctx, action.ID); err != nil {
				log.Printf("Failed to remove abandoned action %s: %v", action.ID, err)
			}
			abandoned++
			continue
		}

		sendErr := retry.Do(
			func() error { return r.send(ctx, action) },
			retry.Attempts(uint(remaining)),
			retry.Delay(500*time.Millisecond),
			retry.MaxDelay(30*time.Second),
			retry.MaxJitter(time.Second),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				// Persist the spent attempt so the budget survives restarts.
				if rerr := r.queue.incrementRetry(ctx, action.ID); rerr != nil {
					log.Printf("Failed to record retry for action %s: %v", action.ID, rerr)
				}
				log.Printf("Retrying offline action %s (attempt %d): %v", action.ID, n+1, err)
			}),
		)
		if sendErr != nil {
			// Count the final failed attempt too.
			if rerr := r.queue.incrementRetry(ctx, action.ID); rerr != nil {
				log.Printf("Failed to record retry for action %s: %v", action.ID, rerr)
			}
			log.Printf("Offline action %s failed after retries: %v", action.ID, sendErr)
			continue
		}

		if err := r.queue.RemoveAction(ctx, action.ID); err != nil {
			log.Printf("Failed to remove replayed action %s: %v", action.ID, err)
		}
		replayed++
	}

	return replayed, abandoned, nil
}

func (r *Replayer) send(ctx context.Context, action Action) error {
	method, ok := actionMethods[action.Type]
	if !ok {
		return retry.Unrecoverable(fmt.Errorf("unknown action type %q", action.Type))
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+action.Endpoint, bytes.NewReader(action.Data))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// The server understood and rejected the mutation; repeating it
		// cannot succeed.
		return retry.Unrecoverable(fmt.Errorf("HTTP %d", resp.StatusCode))
	default:
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
}
