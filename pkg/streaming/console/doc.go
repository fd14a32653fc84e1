/*
Package console prints lines asynchronously from many tasks to one writer.

A Printer queues lines in a channel.BackpressureChannel and a single consumer
task writes them, batching what is already queued into one write. Lines
printed by one task keep their order; lines of different tasks never
interleave.

	out := console.New(os.Stdout)
	defer out.Close()

	out.Topic("Channels")
	out.Printf("sent %d items", 3)

Close writes whatever is still queued before returning. Flush waits for the
lines queued so far without closing. The queue defaults to 256 lines with the
Block strategy; Config.Strategy selects Drop or DropOldest for printers that
must never slow down their callers, and Stats reports the dropped lines.
*/
package console
