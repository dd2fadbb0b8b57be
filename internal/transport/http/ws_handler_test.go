package http

import (
	"testing"
	"time"
)

func TestEnqueueStopsWhenWriterHasExited(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})
	msg := outboundMessage[any]{Type: "error"}

	if !enqueue(send, writerDone, msg) {
		t.Fatalf("expected first message to be buffered")
	}

	close(writerDone)
	done := make(chan bool, 1)
	go func() { done <- enqueue(send, writerDone, msg) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected enqueue to report the writer is gone")
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full buffer after the writer exited")
	}
}
