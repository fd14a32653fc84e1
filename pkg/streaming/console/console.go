package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// ErrPrinterClosed is returned when printing to a closed Printer.
var ErrPrinterClosed = errors.New("printer is closed")

// Stats holds statistics about a Printer.
type Stats struct {
	// LinesWritten is the number of lines handed to the underlying writer.
	LinesWritten int64

	// BytesWritten is the number of bytes written.
	BytesWritten int64

	// WriteCount is the number of calls to the underlying writer.
	WriteCount int64

	// ErrorCount is the number of failed writes, after retries.
	ErrorCount int64

	// Dropped is the number of lines discarded by a Drop or DropOldest queue.
	Dropped int64

	// LastWriteTime is the time of the last successful write.
	LastWriteTime time.Time
}

// Config holds configuration options for a Printer.
type Config struct {
	// Name labels the queue metrics. Default: "console"
	Name string

	// QueueSize is the number of lines that can wait to be written.
	// Default: 256
	QueueSize int

	// Strategy applies when the queue is full. Default: channel.Block
	Strategy channel.BackpressureStrategy

	// BatchBytes caps how many queued bytes are gathered into one write.
	// Default: 4KB
	BatchBytes int

	// MaxRetries is the number of times to retry a failed write.
	// Default: 3
	MaxRetries int

	// RetryDelay is the delay between retries.
	// Default: 10ms
	RetryDelay time.Duration

	// OnError is called when a write fails after all retries.
	OnError func(error)

	// Metrics exports the queue metrics when enabled.
	Metrics metrics.Config
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Name:       "console",
		QueueSize:  256,
		Strategy:   channel.Block,
		BatchBytes: 4 * 1024,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
	}
}

// entry is a queued line, or a flush marker when flushed is set.
type entry struct {
	line    string
	flushed chan struct{}
}

// Printer writes lines to an io.Writer from a single consumer task, so lines
// printed by concurrent tasks never interleave and each task's lines keep
// their order.
type Printer struct {
	underlying io.Writer
	config     Config

	queue  channel.BackpressureChannel[entry]
	scope  *task.Scope
	drain  *task.Handle
	closed sync.Once

	stats   Stats
	statsMu sync.RWMutex
}

// New creates a Printer with default configuration.
func New(w io.Writer) *Printer {
	return NewWithConfig(w, DefaultConfig())
}

// NewWithConfig creates a Printer with the specified configuration.
func NewWithConfig(w io.Writer, config Config) *Printer {
	defaults := DefaultConfig()
	if config.Name == "" {
		config.Name = defaults.Name
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.BatchBytes <= 0 {
		config.BatchBytes = defaults.BatchBytes
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}

	p := &Printer{
		underlying: w,
		config:     config,
	}

	queueConfig := channel.Config{
		BufferSize: config.QueueSize,
		Strategy:   config.Strategy,
		OnDrop: func(interface{}) {
			p.updateStats(func(s *Stats) { s.Dropped++ })
		},
	}
	if config.Metrics.Enabled {
		p.queue = channel.NewWithMetrics[entry](queueConfig, config.Name, config.Metrics)
	} else {
		p.queue = channel.NewWithConfig[entry](queueConfig)
	}

	p.scope = task.NewScope(context.Background(), task.WithName(config.Name))
	p.drain = p.scope.Launch(p.drainLoop, task.Named(config.Name+"-drain"))
	return p
}

// Println formats its operands like fmt.Println and queues the line.
func (p *Printer) Println(a ...any) error {
	return p.enqueue(context.Background(), fmt.Sprintln(a...))
}

// Printf formats like fmt.Printf and queues the result as one line.
func (p *Printer) Printf(format string, a ...any) error {
	line := fmt.Sprintf(format, a...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	return p.enqueue(context.Background(), line)
}

// PrintContext queues line, waiting at most until ctx is done for queue space.
func (p *Printer) PrintContext(ctx context.Context, line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	return p.enqueue(ctx, line)
}

// Topic prints a section banner.
func (p *Printer) Topic(title string) error {
	rule := strings.Repeat("-", len(title)+8)
	return p.enqueue(context.Background(), fmt.Sprintf("\n%s\n--- %s ---\n%s\n", rule, title, rule))
}

// Flush waits until every line queued before the call has been written.
// With a Drop or DropOldest queue the flush request itself may be dropped,
// in which case Flush waits until ctx is done.
func (p *Printer) Flush(ctx context.Context) error {
	marker := entry{flushed: make(chan struct{})}
	if err := p.queue.Send(ctx, marker); err != nil {
		return p.queueErr(err)
	}

	select {
	case <-marker.flushed:
		return nil
	case <-ctx.Done():
		return suspend.Checkpoint(ctx)
	}
}

// Close stops accepting lines, writes the queued ones and waits for the
// consumer task to finish.
func (p *Printer) Close() error {
	var err error
	p.closed.Do(func() {
		_ = p.queue.Close()
		err = p.drain.Await(context.Background())
		_ = p.scope.Wait(context.Background())
	})
	return err
}

// IsClosed returns true once Close has been called.
func (p *Printer) IsClosed() bool {
	return p.queue.IsClosed()
}

// Stats returns printer statistics.
func (p *Printer) Stats() Stats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *Printer) enqueue(ctx context.Context, line string) error {
	if err := p.queue.Send(ctx, entry{line: line}); err != nil {
		return p.queueErr(err)
	}
	return nil
}

func (p *Printer) queueErr(err error) error {
	if errors.Is(err, channel.ErrChannelClosed) {
		return ErrPrinterClosed
	}
	return err
}

// drainLoop is the consumer task: it gathers queued lines into batches and
// writes each batch with one call.
func (p *Printer) drainLoop(ctx context.Context) error {
	var batch bytes.Buffer
	var lines int64
	var markers []chan struct{}

	for {
		e, err := p.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrChannelClosed) {
				return nil
			}
			return err
		}
		p.add(&batch, &lines, &markers, e)

		// Gather what is already queued without waiting.
		for batch.Len() < p.config.BatchBytes {
			e, ok, _ := p.queue.TryReceive()
			if !ok {
				break
			}
			p.add(&batch, &lines, &markers, e)
		}

		if batch.Len() > 0 {
			p.write(ctx, batch.Bytes(), lines)
		}
		batch.Reset()
		lines = 0

		for _, m := range markers {
			close(m)
		}
		markers = markers[:0]
	}
}

func (p *Printer) add(batch *bytes.Buffer, lines *int64, markers *[]chan struct{}, e entry) {
	if e.flushed != nil {
		*markers = append(*markers, e.flushed)
		return
	}
	batch.WriteString(e.line)
	*lines++
}

// write hands data to the underlying writer, retrying failed writes.
func (p *Printer) write(ctx context.Context, data []byte, lines int64) {
	var written int
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := suspend.Delay(ctx, p.config.RetryDelay); err != nil {
				lastErr = err
				break
			}
		}

		n, err := p.underlying.Write(data[written:])
		written += n
		p.updateStats(func(s *Stats) { s.WriteCount++ })

		if err != nil {
			lastErr = err
			continue
		}
		if written < len(data) {
			lastErr = io.ErrShortWrite
			continue
		}
		lastErr = nil
		break
	}

	p.updateStats(func(s *Stats) {
		s.BytesWritten += int64(written)
		if lastErr != nil {
			s.ErrorCount++
			return
		}
		s.LinesWritten += lines
		s.LastWriteTime = time.Now()
	})

	if lastErr != nil && p.config.OnError != nil {
		p.config.OnError(lastErr)
	}
}

func (p *Printer) updateStats(updater func(*Stats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	updater(&p.stats)
}
