package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	want := Message{Type: SessionEnded, TeacherID: "teacher@cse.edu", SessionID: "1"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || got.SessionID != want.SessionID {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("message not delivered")
	}

	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Fatalf("channel should close after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("consumer did not stop")
	}
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(ctx, Message{Type: SessionEnded}); err == nil {
		t.Fatalf("publish on a full queue with a cancelled context should fail")
	}
}
