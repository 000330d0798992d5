package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/restomueble/storefront/internal/constants"
)

func TestInFlightGuardLocalFallback(t *testing.T) {
	guard := NewInFlightGuard(time.Second)
	ctx := context.Background()

	release, err := guard.Acquire(ctx, "sess-1", constants.InFlightActionAddToCart)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if _, err := guard.Acquire(ctx, "sess-1", constants.InFlightActionAddToCart); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("second acquire should be rejected, got %v", err)
	}
	other, err := guard.Acquire(ctx, "sess-1", constants.InFlightActionCheckout)
	if err != nil {
		t.Fatalf("different action should not conflict: %v", err)
	}
	other()
	another, err := guard.Acquire(ctx, "sess-2", constants.InFlightActionAddToCart)
	if err != nil {
		t.Fatalf("different session should not conflict: %v", err)
	}
	another()

	release()
	release()
	again, err := guard.Acquire(ctx, "sess-1", constants.InFlightActionAddToCart)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	again()
}

func TestCartEventsSubscribePublish(t *testing.T) {
	events := NewCartEvents()
	first, cancelFirst := events.Subscribe("sess-1")
	second, cancelSecond := events.Subscribe("sess-1")
	other, cancelOther := events.Subscribe("sess-2")
	defer cancelOther()

	if events.Subscribers("sess-1") != 2 {
		t.Fatalf("unexpected subscriber count: %d", events.Subscribers("sess-1"))
	}

	events.Publish("sess-1")
	events.Publish("sess-1")
	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		default:
			t.Fatalf("subscriber should receive a signal")
		}
		select {
		case <-ch:
			t.Fatalf("consecutive signals should be merged")
		default:
		}
	}
	select {
	case <-other:
		t.Fatalf("other sessions should not be notified")
	default:
	}

	cancelFirst()
	cancelFirst()
	if _, ok := <-first; ok {
		t.Fatalf("cancelled channel should be closed")
	}
	cancelSecond()
	if events.Subscribers("sess-1") != 0 {
		t.Fatalf("all subscribers should be removed")
	}
	events.Publish("sess-1")
}
