// Package notify resolves identities to chat handles and delivers warning
// DMs and the administrator removal rollup.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/itinfra/seatsweep/internal/utils"
	"github.com/itinfra/seatsweep/pkg/license"
)

// ErrHandleNotFound is returned by ChatClient.LookupHandle when the chat
// workspace has no member with the given email.
var ErrHandleNotFound = errors.New("no chat handle for email")

// ChatClient is the wire boundary to the chat system.
type ChatClient interface {
	LookupHandle(ctx context.Context, email string) (string, error)
	SendDirectMessage(ctx context.Context, handle, text string) error
	SendChannelMessage(ctx context.Context, recipient, text string) error
}

// Dispatcher sends notifications through a ChatClient, caching email→handle
// lookups. A dispatcher is scoped to one run: the cache must not outlive it,
// and it must not be shared across concurrent runs.
type Dispatcher struct {
	client ChatClient

	// handleCache maps normalized email to resolved handle. An empty string
	// marks an email that already failed resolution, so it is not retried
	// within the run. DM workers share the dispatcher, hence the mutex.
	mu          sync.Mutex
	handleCache map[string]string
}

// NewDispatcher builds a run-scoped dispatcher over the given client.
func NewDispatcher(client ChatClient) *Dispatcher {
	return &Dispatcher{
		client:      client,
		handleCache: make(map[string]string),
	}
}

// ResolveHandle maps an email to a chat handle, consulting the cache first.
// Lookup failures are warnings, not errors: the identity is marked
// unresolved and the batch goes on.
func (d *Dispatcher) ResolveHandle(ctx context.Context, email string) (string, bool) {
	email = license.NormalizeEmail(email)

	d.mu.Lock()
	handle, cached := d.handleCache[email]
	d.mu.Unlock()
	if cached {
		return handle, handle != ""
	}

	handle, err := d.client.LookupHandle(ctx, email)
	if err != nil {
		if errors.Is(err, ErrHandleNotFound) {
			utils.Log.Warnf("no chat handle for %s", email)
		} else {
			utils.Log.Warnf("handle lookup failed for %s: %v", email, err)
		}
		handle = ""
	}

	d.mu.Lock()
	d.handleCache[email] = handle
	d.mu.Unlock()
	return handle, handle != ""
}

// SendWarning DMs one identity that it has been idle. Returns false, never
// an error, when the identity cannot be resolved or the send fails, so a
// batch of warnings proceeds independently.
func (d *Dispatcher) SendWarning(ctx context.Context, id license.Identity, inactiveDays int, serviceName string) bool {
	handle, ok := d.ResolveHandle(ctx, id.Email)
	if !ok {
		return false
	}

	text := fmt.Sprintf(
		"You haven't used %s for %d days. If you are planning to not use the app, please inform IT so we can remove the license.",
		serviceName, inactiveDays,
	)
	if err := d.client.SendDirectMessage(ctx, handle, text); err != nil {
		utils.Log.Warnf("warning DM to %s failed: %v", id.Email, err)
		return false
	}
	utils.Log.Debugf("warned %s about %s inactivity", id.Email, serviceName)
	return true
}

// SendRemovalReport posts the administrator rollup: a header naming the
// service and threshold, then one line per candidate with a <@handle>
// mention when the email resolves. There is one report per run, so unlike
// DMs its failure is surfaced to the caller. An empty candidate list is a
// logged no-op.
func (d *Dispatcher) SendRemovalReport(ctx context.Context, recipient string, ids []license.Identity, inactiveDaysThreshold int, serviceName string) error {
	if len(ids) == 0 {
		utils.Log.Infof("no removal candidates for %s, skipping report", serviceName)
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The following users haven't used %s for %d days and their licenses can be removed:\n",
		serviceName, inactiveDaysThreshold)
	for _, id := range ids {
		if handle, ok := d.ResolveHandle(ctx, id.Email); ok {
			fmt.Fprintf(&b, "• %s (%s) <@%s>\n", id.Name, id.Email, handle)
		} else {
			fmt.Fprintf(&b, "• %s (%s)\n", id.Name, id.Email)
		}
	}

	return d.client.SendChannelMessage(ctx, recipient, b.String())
}
