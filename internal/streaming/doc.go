/*
Package streaming writes server-sent events with timeout protection.

A browser tab left open on a bad network can stop reading while the server
keeps producing progress updates. EventStream bounds every write, flush
included, and reports a stalled or disconnected client as an error so the
handler can return and release its subscriptions.

# Usage

	stream, err := streaming.NewEventStream(r.Context(), w, streaming.DefaultConfig())
	if err != nil {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	for update := range updates {
		if err := stream.Send("progress", update); err != nil {
			return
		}
	}

Events are framed as

	event: <name>
	data: <json>

followed by a blank line. Ping writes a comment line for keep-alive.

# Errors

	ErrWriteTimeout    a write exceeded WriteTimeout, or MaxDuration passed
	ErrClientGone      the request context was canceled
	ErrStreamCanceled  the stream was closed or had already failed
	ErrUnsupported     the ResponseWriter cannot flush

Any failed write closes the stream; later writes return ErrStreamCanceled.
*/
package streaming
