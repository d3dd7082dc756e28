package events

import (
	"sync"
	"testing"
	"time"

	"github.com/smazurov/mfcctl/pkg/bufctrl"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameSubmittedEvent, 1)

	unsub := bus.Subscribe(func(e FrameSubmittedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(FrameSubmittedEvent{Context: "enc0", FrameTag: 0x2A})

	select {
	case got := <-received:
		if got.Context != "enc0" || got.FrameTag != 0x2A {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameAbortedEvent, 1)

	unsub := bus.Subscribe(func(e FrameAbortedEvent) {
		received <- e
	})
	bus.Publish(FrameAbortedEvent{Context: "enc0"})
	<-received

	unsub()
	bus.Publish(FrameAbortedEvent{Context: "enc1"})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	applied := make(chan bool, 1)
	rejected := make(chan bool, 1)

	defer bus.Subscribe(func(ControlAppliedEvent) { applied <- true })()
	defer bus.Subscribe(func(ControlRejectedEvent) { rejected <- true })()

	bus.Publish(ControlAppliedEvent{Control: "gop_size"})
	<-applied
	select {
	case <-rejected:
		t.Fatal("rejected subscriber got an applied event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_ThreadSafety(t *testing.T) {
	bus := New()
	const publishers, perPublisher = 8, 50
	got := make(chan struct{}, publishers*perPublisher)
	defer bus.Subscribe(func(ControlCollectedEvent) { got <- struct{}{} })()

	var wg sync.WaitGroup
	for range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perPublisher {
				bus.Publish(ControlCollectedEvent{Control: "frame_tag"})
			}
		}()
	}
	wg.Wait()

	timeout := time.After(5 * time.Second)
	for range publishers * perPublisher {
		select {
		case <-got:
		case <-timeout:
			t.Fatal("not every event delivered")
		}
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	defer SubscribeToChannel[PresetsReloadedEvent](bus, ch)()

	bus.Publish(PresetsReloadedEvent{Path: "presets.toml", Presets: []string{"keyframe"}})
	select {
	case e := <-ch:
		if ev, ok := e.(PresetsReloadedEvent); !ok || ev.Path != "presets.toml" {
			t.Errorf("got %#v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}

func TestObserverPublishesEngineCallbacks(t *testing.T) {
	bus := New()
	applied := make(chan ControlAppliedEvent, 4)
	rejected := make(chan ControlRejectedEvent, 4)
	defer bus.Subscribe(func(e ControlAppliedEvent) { applied <- e })()
	defer bus.Subscribe(func(e ControlRejectedEvent) { rejected <- e })()

	ctl := bufctrl.New(bufctrl.Options{Observer: NewObserver(bus)})
	c := bufctrl.NewContext("enc0", bufctrl.KindEncoder, bufctrl.CodecVP9)
	ctl.SetControl(c, bufctrl.IDHierarchicalLayers, 9)
	if err := ctl.ApplyControls(c, bufctrl.ModeQueued, &bufctrl.EncoderCommand{}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-rejected:
		if e.Code != string(bufctrl.ErrCodeInvalidLayerCount) || e.Control != "hierarchical_layers" || e.Value != 9 {
			t.Errorf("rejected = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no rejection event")
	}
	select {
	case e := <-applied:
		if e.Mode != "queued" || e.Context != "enc0" {
			t.Errorf("applied = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no applied event")
	}
}
