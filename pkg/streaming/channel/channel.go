package channel

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/chanflow/pkg/common/suspend"
)

// BackpressureStrategy defines how the channel handles backpressure when full.
type BackpressureStrategy int

const (
	// Block strategy blocks the producer until space is available.
	Block BackpressureStrategy = iota

	// Drop strategy drops the newest message when buffer is full.
	Drop

	// DropOldest strategy drops the oldest message when buffer is full.
	DropOldest

	// Error strategy returns an error when buffer is full.
	Error
)

// String returns the strategy name used in logs and metric labels.
func (s BackpressureStrategy) String() string {
	switch s {
	case Block:
		return "block"
	case Drop:
		return "drop"
	case DropOldest:
		return "drop_oldest"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

const (
	// Rendezvous capacity: a blocking Send completes only once a receiver
	// has taken the item.
	Rendezvous = 0

	// Unlimited capacity: the buffer grows as needed and Send never blocks.
	Unlimited = -1

	unlimitedInitialSize = 16
)

// ErrChannelFull is returned when the channel buffer is full and strategy is Error.
var ErrChannelFull = errors.New("channel buffer is full")

// ErrChannelClosed is returned when attempting to operate on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

// ClosedError is the end-of-stream error of a channel closed with a cause.
// It matches ErrChannelClosed and unwraps to the cause.
type ClosedError struct {
	Cause error
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrChannelClosed, e.Cause)
}

// Is reports ErrChannelClosed as a match.
func (e *ClosedError) Is(target error) bool {
	return target == ErrChannelClosed
}

func (e *ClosedError) Unwrap() error {
	return e.Cause
}

// SendChannel is the producer half of a channel.
type SendChannel[T any] interface {
	// Send sends a value to the channel.
	Send(ctx context.Context, value T) error

	// TrySend attempts to send a value without blocking.
	TrySend(value T) error

	// Close closes the channel for sending. Queued values stay receivable.
	Close() error

	// CloseWithError closes the channel and records cause for receivers.
	CloseWithError(cause error) error

	// IsClosed returns true if the channel is closed for sending.
	IsClosed() bool
}

// ReceiveChannel is the consumer half of a channel.
type ReceiveChannel[T any] interface {
	// Receive receives a value from the channel. Once the channel is closed
	// and drained it returns an error matching ErrChannelClosed.
	Receive(ctx context.Context) (T, error)

	// TryReceive attempts to receive a value without blocking.
	TryReceive() (T, bool, error)

	// All returns a single-pass iterator over the received values. It ends
	// when the channel is closed and drained or ctx is done.
	All(ctx context.Context) iter.Seq[T]

	// Cancel closes the channel and discards queued values.
	Cancel()

	// IsDrained returns true once the channel is closed and empty.
	IsDrained() bool

	// Err returns the cause passed to CloseWithError, if any.
	Err() error

	// Len returns the current number of buffered elements.
	Len() int

	// Cap returns the configured capacity (Rendezvous or Unlimited included).
	Cap() int
}

// BackpressureChannel provides a channel with configurable backpressure handling.
type BackpressureChannel[T any] interface {
	SendChannel[T]
	ReceiveChannel[T]

	// Stats returns channel statistics.
	Stats() Stats
}

// Stats holds statistics about channel performance.
type Stats struct {
	// SendCount is the total number of send operations.
	SendCount int64

	// ReceiveCount is the total number of receive operations.
	ReceiveCount int64

	// DroppedCount is the total number of dropped messages.
	DroppedCount int64

	// BlockedSends is the number of sends that had to block.
	BlockedSends int64

	// AverageSendTime is the average time per send operation.
	AverageSendTime time.Duration

	// AverageReceiveTime is the average time per receive operation.
	AverageReceiveTime time.Duration

	// BufferUtilization is the current buffer utilization (0.0 to 1.0).
	// Always zero for Rendezvous and Unlimited channels.
	BufferUtilization float64

	// LastSendTime is the timestamp of the last send operation.
	LastSendTime time.Time

	// LastReceiveTime is the timestamp of the last receive operation.
	LastReceiveTime time.Time
}

// Config holds configuration for BackpressureChannel.
type Config struct {
	// BufferSize is the channel capacity: positive for a bounded buffer,
	// Rendezvous or Unlimited otherwise.
	BufferSize int

	// Strategy defines how backpressure is handled.
	Strategy BackpressureStrategy

	// OnDrop is called when a message is dropped (for Drop/DropOldest strategies).
	// It runs with the channel lock held and must not call back into the channel.
	OnDrop func(value interface{})

	// OnBlock is called once when a send operation starts blocking (for Block strategy).
	// It runs with the channel lock held and must not call back into the channel.
	OnBlock func()

	// SendTimeout is the maximum time to wait for send operations (0 = no timeout).
	SendTimeout time.Duration

	// ReceiveTimeout is the maximum time to wait for receive operations (0 = no timeout).
	ReceiveTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:     Rendezvous,
		Strategy:       Block,
		SendTimeout:    0,
		ReceiveTimeout: 0,
	}
}

// backpressureChannel implements BackpressureChannel.
type backpressureChannel[T any] struct {
	config Config
	buffer []T
	mu     sync.Mutex

	// Channel state
	head       int
	tail       int
	count      int
	closed     atomic.Bool
	cancelled  bool
	closeCause error

	// enqueued and dequeued count items through the buffer; a rendezvous
	// sender waits until dequeued reaches its ticket.
	enqueued uint64
	dequeued uint64

	// Synchronization
	sendCond *sync.Cond
	recvCond *sync.Cond

	// Statistics
	stats   Stats
	statsMu sync.Mutex
}

// New creates a new BackpressureChannel with the given capacity and the Block strategy.
func New[T any](capacity int) BackpressureChannel[T] {
	config := DefaultConfig()
	config.BufferSize = capacity
	return NewWithConfig[T](config)
}

// NewWithConfig creates a new BackpressureChannel with the specified configuration.
// It panics if the capacity is below Unlimited.
func NewWithConfig[T any](config Config) BackpressureChannel[T] {
	return newChannel[T](config)
}

func newChannel[T any](config Config) *backpressureChannel[T] {
	var size int
	switch {
	case config.BufferSize > 0:
		size = config.BufferSize
	case config.BufferSize == Rendezvous:
		size = 1
	case config.BufferSize == Unlimited:
		size = unlimitedInitialSize
	default:
		panic(fmt.Sprintf("channel: invalid capacity %d", config.BufferSize))
	}

	ch := &backpressureChannel[T]{
		config: config,
		buffer: make([]T, size),
	}

	ch.sendCond = sync.NewCond(&ch.mu)
	ch.recvCond = sync.NewCond(&ch.mu)

	return ch
}

// Send implements SendChannel.Send.
func (ch *backpressureChannel[T]) Send(ctx context.Context, value T) (err error) {
	startTime := time.Now()

	if ch.IsClosed() {
		return ErrChannelClosed
	}

	// Handle timeout
	if ch.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.config.SendTimeout)
		defer cancel()
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	// Only sends that enqueued their value count; drops and failures do not.
	before := ch.enqueued
	defer func() {
		if err == nil && ch.enqueued > before {
			ch.updateSendStats(time.Since(startTime))
		}
	}()

	if ch.closed.Load() {
		return ErrChannelClosed
	}
	if ch.config.BufferSize == Unlimited {
		ch.growLocked()
		ch.addToBufferLocked(value)
		return nil
	}

	switch ch.config.Strategy {
	case Drop:
		return ch.dropSendLocked(value)
	case DropOldest:
		return ch.dropOldestSendLocked(value)
	case Error:
		return ch.errorSendLocked(value)
	default:
		return ch.blockingSendLocked(ctx, value)
	}
}

// TrySend implements SendChannel.TrySend.
func (ch *backpressureChannel[T]) TrySend(value T) (err error) {
	startTime := time.Now()

	if ch.IsClosed() {
		return ErrChannelClosed
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	before := ch.enqueued
	defer func() {
		if err == nil && ch.enqueued > before {
			ch.updateSendStats(time.Since(startTime))
		}
	}()

	if ch.closed.Load() {
		return ErrChannelClosed
	}
	if ch.config.BufferSize == Unlimited {
		ch.growLocked()
		ch.addToBufferLocked(value)
		return nil
	}

	switch ch.config.Strategy {
	case Drop:
		return ch.dropSendLocked(value)
	case DropOldest:
		return ch.dropOldestSendLocked(value)
	default:
		return ch.errorSendLocked(value)
	}
}

// Receive implements ReceiveChannel.Receive.
func (ch *backpressureChannel[T]) Receive(ctx context.Context) (value T, err error) {
	startTime := time.Now()
	defer func() {
		if err == nil {
			ch.updateReceiveStats(time.Since(startTime))
		}
	}()

	// Handle timeout
	if ch.config.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.config.ReceiveTimeout)
		defer cancel()
	}

	return ch.blockingReceive(ctx)
}

// TryReceive implements ReceiveChannel.TryReceive.
func (ch *backpressureChannel[T]) TryReceive() (T, bool, error) {
	var zero T

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.count == 0 {
		if ch.closed.Load() {
			return zero, false, ch.closedErrLocked()
		}
		return zero, false, nil
	}

	value := ch.removeFromBufferLocked()
	ch.updateStats(func(s *Stats) {
		s.ReceiveCount++
		s.LastReceiveTime = time.Now()
	})
	ch.sendCond.Broadcast()

	return value, true, nil
}

// All implements ReceiveChannel.All.
func (ch *backpressureChannel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			value, err := ch.Receive(ctx)
			if err != nil {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// Close implements SendChannel.Close.
func (ch *backpressureChannel[T]) Close() error {
	return ch.CloseWithError(nil)
}

// CloseWithError implements SendChannel.CloseWithError.
// Only the first close records its cause.
func (ch *backpressureChannel[T]) CloseWithError(cause error) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed.Load() {
		return nil // Already closed
	}
	ch.closeCause = cause
	ch.closed.Store(true)

	ch.sendCond.Broadcast()
	ch.recvCond.Broadcast()

	return nil
}

// Cancel implements ReceiveChannel.Cancel.
func (ch *backpressureChannel[T]) Cancel() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.closed.Store(true)
	ch.cancelled = true

	// Discarded values are not counted as dequeued, so rendezvous
	// senders waiting on them observe the cancellation.
	discarded := ch.count
	clear(ch.buffer)
	ch.head, ch.tail, ch.count = 0, 0, 0
	if discarded > 0 {
		ch.updateStats(func(s *Stats) { s.DroppedCount += int64(discarded) })
	}

	ch.sendCond.Broadcast()
	ch.recvCond.Broadcast()
}

// IsClosed implements SendChannel.IsClosed.
func (ch *backpressureChannel[T]) IsClosed() bool {
	return ch.closed.Load()
}

// IsDrained implements ReceiveChannel.IsDrained.
func (ch *backpressureChannel[T]) IsDrained() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed.Load() && ch.count == 0
}

// Err implements ReceiveChannel.Err.
func (ch *backpressureChannel[T]) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closeCause
}

// Len implements ReceiveChannel.Len.
func (ch *backpressureChannel[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.count
}

// Cap implements ReceiveChannel.Cap.
func (ch *backpressureChannel[T]) Cap() int {
	return ch.config.BufferSize
}

// Stats implements BackpressureChannel.Stats.
func (ch *backpressureChannel[T]) Stats() Stats {
	ch.mu.Lock()
	count := ch.count
	ch.mu.Unlock()

	ch.statsMu.Lock()
	stats := ch.stats
	ch.statsMu.Unlock()

	// Calculate buffer utilization
	if ch.config.BufferSize > 0 {
		stats.BufferUtilization = float64(count) / float64(ch.config.BufferSize)
	}

	// Calculate average times
	if stats.SendCount > 0 {
		stats.AverageSendTime = time.Duration(int64(stats.AverageSendTime) / stats.SendCount)
	}
	if stats.ReceiveCount > 0 {
		stats.AverageReceiveTime = time.Duration(int64(stats.AverageReceiveTime) / stats.ReceiveCount)
	}

	return stats
}

// blockingSendLocked sends with blocking strategy (must hold lock).
func (ch *backpressureChannel[T]) blockingSendLocked(ctx context.Context, value T) error {
	stop := ch.wakeOnDone(ctx)
	defer stop()

	blocked := false
	for ch.count >= len(ch.buffer) && !ch.closed.Load() {
		if !blocked {
			blocked = true
			if ch.config.OnBlock != nil {
				ch.config.OnBlock()
			}
			ch.updateStats(func(s *Stats) { s.BlockedSends++ })
		}

		if err := suspend.Checkpoint(ctx); err != nil {
			return err
		}

		ch.sendCond.Wait()
	}

	if ch.closed.Load() {
		return ErrChannelClosed
	}

	ch.addToBufferLocked(value)
	if ch.config.BufferSize != Rendezvous {
		return nil
	}

	// Rendezvous: wait for a receiver to take this value.
	ticket := ch.enqueued
	for ch.dequeued < ticket {
		if ch.cancelled {
			return ErrChannelClosed
		}
		if err := suspend.Checkpoint(ctx); err != nil {
			// The single slot still holds our value; take it back.
			ch.removeFromBufferLocked()
			ch.sendCond.Broadcast()
			return err
		}
		ch.sendCond.Wait()
	}

	return nil
}

// dropSendLocked sends with drop strategy (must hold lock).
func (ch *backpressureChannel[T]) dropSendLocked(value T) error {
	if ch.count >= len(ch.buffer) {
		ch.updateStats(func(s *Stats) { s.DroppedCount++ })
		if ch.config.OnDrop != nil {
			ch.config.OnDrop(value)
		}
		return nil
	}

	ch.addToBufferLocked(value)
	return nil
}

// dropOldestSendLocked sends with drop oldest strategy (must hold lock).
func (ch *backpressureChannel[T]) dropOldestSendLocked(value T) error {
	if ch.count >= len(ch.buffer) {
		oldValue := ch.removeFromBufferLocked()
		ch.updateStats(func(s *Stats) { s.DroppedCount++ })
		if ch.config.OnDrop != nil {
			ch.config.OnDrop(oldValue)
		}
	}

	ch.addToBufferLocked(value)
	return nil
}

// errorSendLocked sends with error strategy (must hold lock).
func (ch *backpressureChannel[T]) errorSendLocked(value T) error {
	if ch.count >= len(ch.buffer) {
		return ErrChannelFull
	}

	ch.addToBufferLocked(value)
	return nil
}

// blockingReceive receives with blocking.
func (ch *backpressureChannel[T]) blockingReceive(ctx context.Context) (T, error) {
	var zero T

	if err := suspend.Checkpoint(ctx); err != nil {
		return zero, err
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	stop := ch.wakeOnDone(ctx)
	defer stop()

	for ch.count == 0 && !ch.closed.Load() {
		if err := suspend.Checkpoint(ctx); err != nil {
			return zero, err
		}

		// Wait for data
		ch.recvCond.Wait()
	}

	if ch.count == 0 {
		return zero, ch.closedErrLocked()
	}

	value := ch.removeFromBufferLocked()
	ch.updateStats(func(s *Stats) {
		s.ReceiveCount++
		s.LastReceiveTime = time.Now()
	})
	ch.sendCond.Broadcast()

	return value, nil
}

// wakeOnDone broadcasts both conditions when ctx is done so waiters
// re-check their context. The returned func unregisters the wakeup.
func (ch *backpressureChannel[T]) wakeOnDone(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		ch.sendCond.Broadcast()
		ch.recvCond.Broadcast()
	})
}

func (ch *backpressureChannel[T]) closedErrLocked() error {
	if ch.closeCause != nil {
		return &ClosedError{Cause: ch.closeCause}
	}
	return ErrChannelClosed
}

// addToBufferLocked adds a value to the buffer (must hold lock).
func (ch *backpressureChannel[T]) addToBufferLocked(value T) {
	ch.buffer[ch.tail] = value
	ch.tail = (ch.tail + 1) % len(ch.buffer)
	ch.count++
	ch.enqueued++
	ch.recvCond.Broadcast()
}

// removeFromBufferLocked removes a value from the buffer (must hold lock).
func (ch *backpressureChannel[T]) removeFromBufferLocked() T {
	value := ch.buffer[ch.head]
	var zero T
	ch.buffer[ch.head] = zero // Clear reference
	ch.head = (ch.head + 1) % len(ch.buffer)
	ch.count--
	ch.dequeued++
	return value
}

// growLocked doubles an unlimited buffer when it is full (must hold lock).
func (ch *backpressureChannel[T]) growLocked() {
	if ch.count < len(ch.buffer) {
		return
	}

	grown := make([]T, len(ch.buffer)*2)
	n := copy(grown, ch.buffer[ch.head:])
	copy(grown[n:], ch.buffer[:ch.head])

	ch.buffer = grown
	ch.head = 0
	ch.tail = ch.count
}

// updateStats safely updates statistics.
func (ch *backpressureChannel[T]) updateStats(updater func(*Stats)) {
	ch.statsMu.Lock()
	defer ch.statsMu.Unlock()
	updater(&ch.stats)
}

// updateSendStats records a send that enqueued its value.
func (ch *backpressureChannel[T]) updateSendStats(duration time.Duration) {
	ch.updateStats(func(s *Stats) {
		s.SendCount++
		s.LastSendTime = time.Now()
		s.AverageSendTime += duration
	})
}

// updateReceiveStats updates receive-related statistics.
func (ch *backpressureChannel[T]) updateReceiveStats(duration time.Duration) {
	ch.updateStats(func(s *Stats) {
		s.AverageReceiveTime += duration
	})
}
