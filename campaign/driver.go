package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaign-sender/models"
	"campaign-sender/policy"
	"campaign-sender/scheduler"
)

// ErrAlreadyRunning is returned when a second run is started while one
// is active.
var ErrAlreadyRunning = errors.New("campaign is already running")

const defaultPollInterval = 60 * time.Second

// PolicyAccessor hands the driver live policy values. The driver calls
// Current before every send attempt so quota, window and delay edits
// made mid-run take effect immediately.
type PolicyAccessor interface {
	Current() (*policy.Policy, error)
	IncrementDailyCount() error
}

// Transport composes and delivers one message, returning the ID of the
// template it used.
type Transport interface {
	Send(ctx context.Context, from, password string, r models.Recipient, templates []policy.Template) (int, error)
}

// OutcomeLog durably records per-recipient outcomes.
type OutcomeLog interface {
	Success(r models.Recipient, templateID int) error
	Failure(r models.Recipient, sendErr error) error
}

// Driver sequences one campaign over a deduplicated recipient list,
// enforcing the quota, session-window and throttle policies. At most
// one run is active at a time and at most one send is in flight.
type Driver struct {
	policy    PolicyAccessor
	transport Transport
	outcomes  OutcomeLog

	// Injectable for tests; defaults are 60s and time.Now.
	pollInterval time.Duration
	now          func() time.Time

	events chan Event

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	status  Result
}

func NewDriver(accessor PolicyAccessor, transport Transport, outcomes OutcomeLog) *Driver {
	return &Driver{
		policy:       accessor,
		transport:    transport,
		outcomes:     outcomes,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		events:       make(chan Event, 64),
		status:       Result{State: StateIdle},
	}
}

// Events exposes the driver's notification channel. Events are dropped
// rather than block the driver when nobody is draining the channel.
func (d *Driver) Events() <-chan Event {
	return d.events
}

// Status returns a snapshot of the current (or last) run.
func (d *Driver) Status() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// IsRunning reports whether a run is active.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Start launches a run in the background. A second start while one is
// active fails with ErrAlreadyRunning.
func (d *Driver) Start(recipients []models.Recipient) (string, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	runID := d.begin(cancel, len(recipients))
	d.mu.Unlock()

	go func() {
		defer cancel()
		d.finish(d.run(ctx, recipients))
	}()

	return runID, nil
}

// Run executes a campaign synchronously, returning its terminal result.
// Cancellation arrives through ctx and is observed at the defined
// suspension points: before each send, during window-wait polling and
// during the throttle delay. It is never observed mid-send.
func (d *Driver) Run(ctx context.Context, recipients []models.Recipient) (Result, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return Result{}, ErrAlreadyRunning
	}
	d.begin(nil, len(recipients))
	d.mu.Unlock()

	res := d.run(ctx, recipients)
	d.finish(res)
	return res, nil
}

// Stop requests cooperative cancellation of the active run. The driver
// notices at its next check point; an in-flight send finishes first.
func (d *Driver) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.cancel == nil {
		return false
	}
	d.cancel()
	return true
}

// begin marks the driver running; callers must hold d.mu.
func (d *Driver) begin(cancel context.CancelFunc, total int) string {
	runID := uuid.NewString()
	d.running = true
	d.cancel = cancel
	d.status = Result{RunID: runID, State: StateRunning, Total: total}
	return runID
}

func (d *Driver) finish(res Result) {
	d.mu.Lock()
	d.running = false
	d.cancel = nil
	d.status = res
	d.mu.Unlock()

	// Every terminal state converges on the same closing notification.
	d.emit(EventTerminal, "Campaign stopped.", "")
}

func (d *Driver) run(ctx context.Context, recipients []models.Recipient) Result {
	res := d.Status()

	if len(recipients) == 0 {
		d.emit(EventProgress, "No new emails to send. Job complete.", "")
		res.State = StateCompleted
		return res
	}

	for _, r := range recipients {
		if ctx.Err() != nil {
			res.State = StateStopped
			res.Reason = ReasonCancelled
			return res
		}

		pol, err := d.policy.Current()
		if err != nil {
			d.emit(EventFailure, fmt.Sprintf("Failed to load policy: %v", err), "")
			res.State = StateErrored
			res.Reason = err.Error()
			return res
		}

		if !scheduler.CheckLimits(pol) {
			d.emit(EventProgress, "Daily limit reached. Stopping for today.", "")
			res.State = StateStopped
			res.Reason = ReasonQuotaExhausted
			return res
		}

		pol, stopped := d.waitForSession(ctx, pol)
		if stopped {
			res.State = StateStopped
			res.Reason = ReasonCancelled
			return res
		}
		if pol == nil {
			res.State = StateErrored
			res.Reason = "failed to load policy during window wait"
			return res
		}
		if ctx.Err() != nil {
			res.State = StateStopped
			res.Reason = ReasonCancelled
			return res
		}
		d.setState(StateSending)

		d.emit(EventProgress, fmt.Sprintf("Sending to %s...", r.Email), r.Email)
		templateID, err := d.transport.Send(ctx, pol.SenderEmail, pol.AppPassword, r, pol.Templates)
		if err != nil {
			res.Failed++
			d.setCounts(res.Sent, res.Failed)
			if logErr := d.outcomes.Failure(r, err); logErr != nil {
				d.emit(EventFailure, fmt.Sprintf("Failed to record failure for %s: %v", r.Email, logErr), r.Email)
			}
			d.emit(EventFailure, fmt.Sprintf("Send to %s failed: %v. Stop on error triggered.", r.Email, err), r.Email)
			res.State = StateErrored
			res.Reason = err.Error()
			return res
		}

		// The outcome must be durable before the next recipient is
		// touched. A crash between the send and this write can
		// duplicate one message on restart; that gap is accepted.
		if err := d.outcomes.Success(r, templateID); err != nil {
			d.emit(EventFailure, fmt.Sprintf("Failed to record success for %s: %v", r.Email, err), r.Email)
			res.State = StateErrored
			res.Reason = err.Error()
			return res
		}
		if err := d.policy.IncrementDailyCount(); err != nil {
			d.emit(EventFailure, fmt.Sprintf("Failed to update daily count: %v", err), "")
			res.State = StateErrored
			res.Reason = err.Error()
			return res
		}
		res.Sent++
		d.setCounts(res.Sent, res.Failed)
		d.emit(EventSuccess, fmt.Sprintf("Sent to %s (template %d)", r.Email, templateID), r.Email)

		d.throttle(ctx, pol)
	}

	res.State = StateCompleted
	return res
}

// waitForSession blocks until the session window is open, polling on
// the driver's interval and re-reading the policy each round so window
// edits are picked up. It returns the policy in force when the window
// opened, or stopped=true when cancellation fired first.
func (d *Driver) waitForSession(ctx context.Context, pol *policy.Policy) (_ *policy.Policy, stopped bool) {
	for {
		ok, reason := scheduler.CheckSession(pol, d.now())
		if ok {
			return pol, false
		}

		d.setState(StateWaitingWindow)
		d.emit(EventWaitingWindow, fmt.Sprintf("Waiting: %s Checking again in %s.", reason, d.pollInterval), "")

		select {
		case <-ctx.Done():
			return nil, true
		case <-time.After(d.pollInterval):
		}

		var err error
		pol, err = d.policy.Current()
		if err != nil {
			d.emit(EventFailure, fmt.Sprintf("Failed to load policy: %v", err), "")
			return nil, false
		}
	}
}

// throttle sleeps for the randomized inter-send delay. Only the
// driver's own progress is suspended; cancellation cuts the sleep
// short and is acted on at the next loop boundary.
func (d *Driver) throttle(ctx context.Context, pol *policy.Policy) {
	delay := scheduler.Delay(pol.MinDelay, pol.MaxDelay)
	if delay <= 0 {
		return
	}
	d.emit(EventProgress, fmt.Sprintf("Throttling: sleeping for %d seconds...", int(delay.Seconds())), "")
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.status.State = s
	d.mu.Unlock()
}

func (d *Driver) setCounts(sent, failed int) {
	d.mu.Lock()
	d.status.Sent = sent
	d.status.Failed = failed
	d.mu.Unlock()
}

func (d *Driver) emit(kind EventKind, message, recipient string) {
	ev := Event{Kind: kind, Message: message, Recipient: recipient, Time: d.now()}
	select {
	case d.events <- ev:
	default:
	}
}
