package notify_test

import (
	"errors"
	"testing"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/event"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/notify"
)

type recordSink struct {
	titles []string
	bodies []string
	fail   bool
}

func (r *recordSink) Notify(title, body string) error {
	if r.fail {
		return errors.New("sink down")
	}
	r.titles = append(r.titles, title)
	r.bodies = append(r.bodies, body)
	return nil
}

func change() event.StatusChange {
	return event.StatusChange{
		ProjectID:   "100",
		ProjectName: "api",
		OldStatus:   "running",
		NewStatus:   "failed",
	}
}

func TestNotifierFormatsStatusChange(t *testing.T) {
	bus := event.NewBus()
	sink := &recordSink{}
	n := notify.New(bus, sink)
	defer n.Close()

	bus.Publish(event.PipelineStatusChanged, change())

	if len(sink.titles) != 1 {
		t.Fatalf("got %d notifications", len(sink.titles))
	}
	if sink.titles[0] != "Pipeline status changed for api" {
		t.Errorf("title = %q", sink.titles[0])
	}
	if sink.bodies[0] != "Status: running -> failed" {
		t.Errorf("body = %q", sink.bodies[0])
	}
}

func TestNotifierFallsBackAcrossSinks(t *testing.T) {
	bus := event.NewBus()
	primary := &recordSink{fail: true}
	fallback := &recordSink{}
	n := notify.New(bus, primary, fallback)
	defer n.Close()

	bus.Publish(event.PipelineStatusChanged, change())

	if len(fallback.titles) != 1 {
		t.Fatalf("fallback got %d notifications", len(fallback.titles))
	}
}

func TestNotifierStopsAtFirstSuccess(t *testing.T) {
	bus := event.NewBus()
	first := &recordSink{}
	second := &recordSink{}
	n := notify.New(bus, first, second)
	defer n.Close()

	bus.Publish(event.PipelineStatusChanged, change())

	if len(first.titles) != 1 || len(second.titles) != 0 {
		t.Errorf("first=%d second=%d notifications", len(first.titles), len(second.titles))
	}
}

func TestNotifierIgnoresForeignPayloads(t *testing.T) {
	bus := event.NewBus()
	sink := &recordSink{}
	n := notify.New(bus, sink)
	defer n.Close()

	bus.Publish(event.PipelineStatusChanged, "not a status change")

	if len(sink.titles) != 0 {
		t.Errorf("got %d notifications for a foreign payload", len(sink.titles))
	}
}

func TestClosedNotifierStaysQuiet(t *testing.T) {
	bus := event.NewBus()
	sink := &recordSink{}
	n := notify.New(bus, sink)
	n.Close()

	bus.Publish(event.PipelineStatusChanged, change())

	if len(sink.titles) != 0 {
		t.Errorf("closed notifier still delivered %d notifications", len(sink.titles))
	}
}
