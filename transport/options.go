package transport

import "go.uber.org/zap"

const DefaultReadBufferSize = 64 * 1024

type Options struct {
	// Host of the simulator's broadcasting endpoint
	Host string

	// Port of the simulator's broadcasting endpoint
	Port int

	// LocalAddr is the local address to bind. Empty picks an ephemeral port.
	LocalAddr string

	// Reuseport controls setting SO_REUSEPORT on the local socket. A reuseport
	// socket is left unconnected and filters datagrams by source address.
	Reuseport bool

	// Trace will dump datagrams to the debug log. This is only useful in local debugging
	Trace bool

	// ReadBufferSize is the largest datagram the reader will accept
	ReadBufferSize int

	Log *zap.Logger
}

func (o Options) readBufferSize() int {
	if o.ReadBufferSize < 1 {
		return DefaultReadBufferSize
	}
	return o.ReadBufferSize
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}
