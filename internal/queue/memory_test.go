package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryClientSendReceive(t *testing.T) {
	client := NewMemoryClient(4)
	ctx := context.Background()

	sent := Message{AnalysisID: "a-1", UserID: "u-1", Version: MessageVersion}
	if err := client.Send(ctx, sent); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.AnalysisID != sent.AnalysisID || got.UserID != sent.UserID {
		t.Fatalf("received %+v, want %+v", got, sent)
	}
}

func TestMemoryClientFullBuffer(t *testing.T) {
	client := NewMemoryClient(1)
	ctx := context.Background()

	if err := client.Send(ctx, Message{AnalysisID: "a-1"}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	err := client.Send(ctx, Message{AnalysisID: "a-2"})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestMemoryClientReceiveHonorsContext(t *testing.T) {
	client := NewMemoryClient(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
