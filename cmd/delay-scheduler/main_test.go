package main

import (
	"context"
	"testing"
	"time"
)

// 取到的队头消息绝不能被跳过：FetchMessage 已经推进了游标，
// 未到期时必须原地等待而不是返回，否则信号在本次会话内永久丢失。
func TestWaitUntilDue(t *testing.T) {
	t.Run("past due returns immediately", func(t *testing.T) {
		start := time.Now()
		if !waitUntilDue(context.Background(), start.Add(-time.Minute), 10*time.Second) {
			t.Fatal("expected true for a past-due message")
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("past-due message must not block, waited %v", elapsed)
		}
	})

	t.Run("blocks until the message is due", func(t *testing.T) {
		start := time.Now()
		if !waitUntilDue(context.Background(), start, 100*time.Millisecond) {
			t.Fatal("expected true once due")
		}
		if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
			t.Errorf("returned before the message was due, waited only %v", elapsed)
		}
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		if waitUntilDue(ctx, time.Now(), time.Hour) {
			t.Fatal("expected false when ctx is cancelled before the message is due")
		}
	})
}
