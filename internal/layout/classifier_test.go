package layout

import "testing"

func TestClassifierThreshold(t *testing.T) {
	c := NewClassifier(0)

	cases := []struct {
		name   string
		window Size
		want   bool
	}{
		{"narrow width", Size{Width: 200, Height: 400}, true},
		{"short height", Size{Width: 400, Height: 200}, true},
		{"both small", Size{Width: 100, Height: 100}, true},
		{"both large", Size{Width: 1080, Height: 720}, false},
		{"exactly threshold both axes", Size{Width: 240, Height: 240}, false},
		{"just under threshold", Size{Width: 239.5, Height: 400}, true},
		{"width at threshold height above", Size{Width: 240, Height: 800}, false},
	}

	for _, tc := range cases {
		if got := c.InPictureInPicture(tc.window); got != tc.want {
			t.Fatalf("%s: InPictureInPicture(%+v) = %v, want %v", tc.name, tc.window, got, tc.want)
		}
	}
}

func TestClassifierOverride(t *testing.T) {
	c := NewClassifier(100)
	if c.Threshold() != 100 {
		t.Fatalf("expected threshold 100, got %v", c.Threshold())
	}
	if c.InPictureInPicture(Size{Width: 150, Height: 150}) {
		t.Fatalf("150x150 should not be PiP with threshold 100")
	}
	if !c.InPictureInPicture(Size{Width: 99, Height: 150}) {
		t.Fatalf("99x150 should be PiP with threshold 100")
	}
}

func TestMemoryFeedSubscribePublish(t *testing.T) {
	feed := NewMemoryFeed()

	var got []Change
	handle := feed.Subscribe(EventChange, func(ch Change) {
		got = append(got, ch)
	})

	change := Change{
		Window: Size{Width: 200, Height: 400},
		Screen: Size{Width: 1080, Height: 1920},
	}
	feed.Publish(EventChange, change)
	feed.Publish("other", change)

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0] != change {
		t.Fatalf("unexpected change delivered: %+v", got[0])
	}

	handle.Remove()
	feed.Publish(EventChange, change)
	if len(got) != 1 {
		t.Fatalf("expected no delivery after remove, got %d", len(got))
	}
}

func TestMemoryFeedRemoveIdempotent(t *testing.T) {
	feed := NewMemoryFeed()
	h1 := feed.Subscribe(EventChange, func(Change) {})
	h2 := feed.Subscribe(EventChange, func(Change) {})

	h1.Remove()
	h1.Remove()

	if n := feed.SubscriberCount(EventChange); n != 1 {
		t.Fatalf("expected 1 subscriber after double remove, got %d", n)
	}

	h2.Remove()
	if n := feed.SubscriberCount(EventChange); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
}
