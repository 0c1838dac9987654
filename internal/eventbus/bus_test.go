package eventbus

import (
	"testing"
)

func TestBusFanout(t *testing.T) {
	t.Parallel()
	b := New()

	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub2()

	b.Publish(Event{Type: IslandPosted, Key: "k1", SourceID: "com.app", IslandID: 7})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != IslandPosted || e.Key != "k1" || e.IslandID != 7 {
				t.Errorf("subscriber %d got %+v", i, e)
			}
			if e.Time.IsZero() {
				t.Errorf("subscriber %d: publish should stamp the time", i)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}

	unsub1()
	b.Publish(Event{Type: IslandCanceled, Key: "k1"})
	select {
	case e := <-ch1:
		t.Errorf("unsubscribed channel got %+v", e)
	default:
	}
	if e := <-ch2; e.Type != IslandCanceled {
		t.Errorf("live subscriber got %+v", e)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New().(*fanout)

	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: IslandPosted})
	b.Publish(Event{Type: IslandPosted}) // buffer full, must not block

	if got := b.Dropped(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}
