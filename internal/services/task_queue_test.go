package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeUsage_Constant(t *testing.T) {
	if TaskTypeUsage != "usage:record" {
		t.Errorf("TaskTypeUsage = %q, expected %q", TaskTypeUsage, "usage:record")
	}
}

func TestUsageTask_Structure(t *testing.T) {
	userID := uint(7)
	task := UsageTask{
		RequestID:        "req-123",
		OrganizationID:   1,
		UserID:           &userID,
		ModelID:          3,
		Endpoint:         "/v1/chat/completions",
		PromptTokens:     1200,
		CompletionTokens: 450,
		ResponseTimeMs:   820,
		Status:           "success",
		StatusCode:       200,
	}

	if task.RequestID != "req-123" {
		t.Errorf("RequestID = %q, expected %q", task.RequestID, "req-123")
	}
	if task.UserID == nil || *task.UserID != 7 {
		t.Error("UserID should be 7")
	}
	if task.PromptTokens != 1200 || task.CompletionTokens != 450 {
		t.Errorf("tokens = %d/%d, expected 1200/450", task.PromptTokens, task.CompletionTokens)
	}
	if task.Status != "success" {
		t.Errorf("Status = %q, expected %q", task.Status, "success")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	q := NewSyncQueue()
	if q.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	q := NewSyncQueue()

	// Without a processor the task is dropped, not an error
	if err := q.Enqueue(&UsageTask{RequestID: "req-1"}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_EnqueueProcessesTask(t *testing.T) {
	q := NewSyncQueue()

	var mu sync.Mutex
	var processed []string
	done := make(chan struct{})

	q.SetProcessor(func(ctx context.Context, task *UsageTask) error {
		mu.Lock()
		processed = append(processed, task.RequestID)
		mu.Unlock()
		close(done)
		return nil
	})

	if err := q.Enqueue(&UsageTask{RequestID: "req-42"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task processing")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 1 || processed[0] != "req-42" {
		t.Errorf("processed = %v, expected [req-42]", processed)
	}
}

func TestSyncQueue_Close(t *testing.T) {
	q := NewSyncQueue()
	if err := q.Close(); err != nil {
		t.Errorf("Close should not error, got %v", err)
	}
}
