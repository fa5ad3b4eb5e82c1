package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func update(idList ...int) Update {
	records := make(Records, len(idList))
	for i, id := range idList {
		records[i] = Record{ID: id}
	}
	return Update{TransactionsUpdated: records}
}

func nextWithin(t *testing.T, sub *Subscription, d time.Duration) (Update, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return sub.Next(ctx)
}

func TestBrokerDeliversToEverySubscriber(t *testing.T) {
	b := NewBroker(nil)
	first := b.Subscribe(EventTransactionsUpdated)
	second := b.Subscribe(EventTransactionsUpdated)
	defer first.Close()
	defer second.Close()

	b.Publish(EventTransactionsUpdated, update(1))
	b.Publish(EventTransactionsUpdated, update(2))

	for _, sub := range []*Subscription{first, second} {
		for _, want := range []int{1, 2} {
			u, err := nextWithin(t, sub, time.Second)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if got := u.TransactionsUpdated[0].ID; got != want {
				t.Errorf("got update %d, want %d", got, want)
			}
		}
	}
}

func TestBrokerOnlyDeliversAfterSubscribe(t *testing.T) {
	b := NewBroker(nil)
	b.Publish(EventTransactionsUpdated, update(1))

	sub := b.Subscribe(EventTransactionsUpdated)
	defer sub.Close()
	b.Publish(EventTransactionsUpdated, update(2))

	u, err := nextWithin(t, sub, time.Second)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := u.TransactionsUpdated[0].ID; got != 2 {
		t.Errorf("got update %d, want 2", got)
	}

	if _, err := nextWithin(t, sub, 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected no further updates, got err = %v", err)
	}
}

func TestBrokerTopicsAreIsolated(t *testing.T) {
	b := NewBroker(nil)
	other := b.Subscribe("OTHER_EVENT")
	defer other.Close()

	b.Publish(EventTransactionsUpdated, update(1))

	if _, err := nextWithin(t, other, 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected nothing on other topic, got err = %v", err)
	}
}

func TestSubscriptionClose(t *testing.T) {
	b := NewBroker(nil)
	sub := b.Subscribe(EventTransactionsUpdated)
	b.Publish(EventTransactionsUpdated, update(1))

	if n := b.Len(EventTransactionsUpdated); n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}

	sub.Close()
	sub.Close()

	if n := b.Len(EventTransactionsUpdated); n != 0 {
		t.Errorf("Len() after close = %d, want 0", n)
	}
	if _, err := nextWithin(t, sub, time.Second); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("Next() after close error = %v, want ErrSubscriptionClosed", err)
	}

	// publishing with no listeners is fine
	b.Publish(EventTransactionsUpdated, update(2))
}

func TestSubscriptionCloseUnblocksNext(t *testing.T) {
	b := NewBroker(nil)
	sub := b.Subscribe(EventTransactionsUpdated)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSubscriptionClosed) {
			t.Errorf("error = %v, want ErrSubscriptionClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestBrokerSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker(nil)
	slow := b.Subscribe(EventTransactionsUpdated)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(EventTransactionsUpdated, update(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on an idle subscriber")
	}

	for want := 0; want < 1000; want++ {
		u, err := nextWithin(t, slow, time.Second)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got := u.TransactionsUpdated[0].ID; got != want {
			t.Fatalf("got update %d, want %d", got, want)
		}
	}
}

func TestBrokerConcurrentSubscribers(t *testing.T) {
	b := NewBroker(nil)

	const subscribers = 8
	var ready, wg sync.WaitGroup
	ready.Add(subscribers)
	wg.Add(subscribers)

	for i := 0; i < subscribers; i++ {
		go func() {
			defer wg.Done()
			sub := b.Subscribe(EventTransactionsUpdated)
			defer sub.Close()
			ready.Done()

			for want := 0; want < 10; want++ {
				u, err := nextWithin(t, sub, 2*time.Second)
				if err != nil {
					t.Errorf("Next() error = %v", err)
					return
				}
				if got := u.TransactionsUpdated[0].ID; got != want {
					t.Errorf("got update %d, want %d", got, want)
					return
				}
			}
		}()
	}

	ready.Wait()
	for i := 0; i < 10; i++ {
		b.Publish(EventTransactionsUpdated, update(i))
	}
	wg.Wait()
}
