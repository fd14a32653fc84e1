package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, 500*time.Millisecond, 10*time.Millisecond)
	})
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline too far: %v", time.Until(deadline))
	}
}

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	AssertError(t, context.Canceled)
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 42, 42)
	AssertEqual(t, "hello", "hello")
	AssertEqual(t, true, true)
}

func TestAssertSliceEqual(t *testing.T) {
	AssertSliceEqual(t, []string{"A", "B", "C"}, []string{"A", "B", "C"})
	AssertSliceEqual[int](t, nil, []int{})
}

func TestMockWriter(t *testing.T) {
	mw := NewMockWriter()

	n, err := mw.Write([]byte("hello "))
	AssertNoError(t, err)
	AssertEqual(t, n, 6)
	_, _ = mw.Write([]byte("world"))

	AssertEqual(t, mw.String(), "hello world")
	AssertEqual(t, mw.WriteCount(), 2)

	mw.SetErrorOnNth(3)
	_, err = mw.Write([]byte("!"))
	AssertError(t, err)

	boom := errors.New("boom")
	mw.SetAlwaysError(boom)
	_, err = mw.Write([]byte("x"))
	AssertEqual(t, errors.Is(err, boom), true)

	mw.Reset()
	AssertEqual(t, mw.Len(), 0)
	AssertEqual(t, mw.WriteCount(), 0)
}
