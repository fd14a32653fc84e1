package benchmark

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// drain receives from ch until it is closed and returns a channel closed when
// it stops.
func drain[T any](ch channel.ReceiveChannel[T]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		for {
			if _, err := ch.Receive(ctx); err != nil {
				return
			}
		}
	}()
	return done
}

// BenchmarkChannelSend measures Send against a concurrent receiver for each
// kind of capacity.
func BenchmarkChannelSend(b *testing.B) {
	capacities := []int{channel.Rendezvous, 10, 1000, channel.Unlimited}

	for _, capacity := range capacities {
		b.Run(capacityLabel(capacity), func(b *testing.B) {
			ch := channel.New[int](capacity)
			done := drain[int](ch)

			b.ReportAllocs()
			b.ResetTimer()
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				_ = ch.Send(ctx, i)
			}
			b.StopTimer()

			_ = ch.Close()
			<-done
		})
	}
}

// BenchmarkChannelReceive measures Receive from a channel kept full.
func BenchmarkChannelReceive(b *testing.B) {
	ch := channel.New[int](1000)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			if err := ch.Send(ctx, i); err != nil {
				return
			}
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ch.Receive(ctx)
	}
	b.StopTimer()

	ch.Cancel()
	<-done
}

// BenchmarkChannelContention measures Send and Receive under concurrent access.
func BenchmarkChannelContention(b *testing.B) {
	for _, producers := range []int{2, 4, 8, 16} {
		b.Run(strconv.Itoa(producers)+"producers", func(b *testing.B) {
			ch := channel.New[int](100)

			consumers := max(producers/2, 1)
			var consumerWg sync.WaitGroup
			consumerWg.Add(consumers)
			for i := 0; i < consumers; i++ {
				go func() {
					defer consumerWg.Done()
					<-drain[int](ch)
				}()
			}

			b.ReportAllocs()
			b.ResetTimer()

			var producerWg sync.WaitGroup
			perProducer := b.N / producers
			producerWg.Add(producers)
			for p := 0; p < producers; p++ {
				go func() {
					defer producerWg.Done()
					ctx := context.Background()
					for i := 0; i < perProducer; i++ {
						_ = ch.Send(ctx, i)
					}
				}()
			}

			producerWg.Wait()
			b.StopTimer()

			_ = ch.Close()
			consumerWg.Wait()
		})
	}
}

// BenchmarkOverflowStrategies measures Send on a full channel for the
// strategies that never block.
func BenchmarkOverflowStrategies(b *testing.B) {
	strategies := []channel.BackpressureStrategy{channel.Drop, channel.DropOldest, channel.Error}

	for _, strategy := range strategies {
		b.Run(strategy.String(), func(b *testing.B) {
			ch := channel.NewWithConfig[int](channel.Config{
				BufferSize: 10,
				Strategy:   strategy,
			})
			defer ch.Cancel()

			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ch.Send(ctx, i)
			}
		})
	}
}

// BenchmarkChannelTryOperations measures non-blocking operations.
func BenchmarkChannelTryOperations(b *testing.B) {
	b.Run("TrySend", func(b *testing.B) {
		ch := channel.New[int](100)
		done := drain[int](ch)

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = ch.TrySend(i)
		}
		b.StopTimer()

		_ = ch.Close()
		<-done
	})

	b.Run("TryReceive", func(b *testing.B) {
		ch := channel.New[int](channel.Unlimited)
		for i := 0; i < b.N; i++ {
			_ = ch.TrySend(i)
		}

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _, _ = ch.TryReceive()
		}
	})
}

func capacityLabel(capacity int) string {
	switch capacity {
	case channel.Rendezvous:
		return "rendezvous"
	case channel.Unlimited:
		return "unlimited"
	default:
		return "buffer" + strconv.Itoa(capacity)
	}
}
