// Package notify surfaces pipeline status changes to the user, preferring
// desktop notifications and falling back to stderr when the desktop bus is
// unavailable.
package notify

import (
	"fmt"
	"os"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/event"
)

// Sink delivers one user-facing notification.
type Sink interface {
	Notify(title, body string) error
}

// Desktop sends native desktop notifications. After the first delivery
// failure it stops trying; the Notifier's stderr fallback takes over.
type Desktop struct {
	mu     sync.Mutex
	broken bool
}

// Notify implements Sink.
func (d *Desktop) Notify(title, body string) error {
	d.mu.Lock()
	broken := d.broken
	d.mu.Unlock()
	if broken {
		return fmt.Errorf("notify: desktop bus unavailable")
	}
	if err := beeep.Notify(title, body, ""); err != nil {
		d.mu.Lock()
		d.broken = true
		d.mu.Unlock()
		debug.Log("notify: desktop notification failed, falling back to stderr: %v", err)
		return err
	}
	return nil
}

// Stderr writes notifications as plain lines on standard error.
type Stderr struct{}

// Notify implements Sink.
func (Stderr) Notify(title, body string) error {
	_, err := fmt.Fprintf(os.Stderr, "%s: %s\n", title, body)
	return err
}

// Notifier listens for pipeline status changes on the bus and forwards them
// to its sinks in order until one succeeds.
type Notifier struct {
	sinks []Sink
	sub   event.Subscription
	bus   *event.Bus
}

// New subscribes a notifier to bus. With no explicit sinks it uses the
// desktop sink backed by stderr.
func New(bus *event.Bus, sinks ...Sink) *Notifier {
	if len(sinks) == 0 {
		sinks = []Sink{&Desktop{}, Stderr{}}
	}
	n := &Notifier{sinks: sinks, bus: bus}
	n.sub = bus.Subscribe(event.PipelineStatusChanged, n.handle)
	return n
}

// Close detaches the notifier from the bus.
func (n *Notifier) Close() {
	n.bus.Unsubscribe(n.sub)
}

func (n *Notifier) handle(payload any) {
	c, ok := payload.(event.StatusChange)
	if !ok {
		return
	}
	title := fmt.Sprintf("Pipeline status changed for %s", c.ProjectName)
	body := fmt.Sprintf("Status: %s -> %s", c.OldStatus, c.NewStatus)
	for _, s := range n.sinks {
		if err := s.Notify(title, body); err == nil {
			return
		}
	}
	debug.Log("notify: no sink accepted %q", title)
}
