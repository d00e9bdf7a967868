package live

// Channel is one peer connection as seen by the transfer. The datagram
// layer owns the wire protocol; the transfer only needs to know the
// channel id, whether the handshake completed, whether the remote is
// the stream source, and how to nudge it when a fresh epoch is
// announceable.
type Channel interface {
	ID() uint32
	IsEstablished() bool
	PeerIsSource() bool
	// LiveSend schedules the next HAVE tick on this channel.
	LiveSend()
}
