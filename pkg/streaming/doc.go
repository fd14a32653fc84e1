/*
Package streaming holds the channel and output primitives the scheduling
packages are built on.

  - channel: channels with a capacity (Rendezvous, buffered or Unlimited), a
    backpressure strategy for full buffers, close with cause and cancel.
  - console: an ordered, asynchronous line printer that many tasks can share.

Basic usage:

	ch := channel.New[string](channel.Rendezvous)
	go func() {
		defer ch.Close()
		for _, c := range countries {
			_ = ch.Send(ctx, c)
		}
	}()

	for c := range ch.All(ctx) {
		out.Println(c)
	}
*/
package streaming
