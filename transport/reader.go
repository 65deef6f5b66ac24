package transport

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTimeout is returned by Read when the deadline passes before enough
	// bytes are buffered. It is a signal to re-check for shutdown and retry,
	// not a failure of the stream.
	ErrTimeout = errors.New("Timed out waiting for buffered data")

	// ErrEndOfStream is returned once the receive loop has stopped and the
	// buffer cannot satisfy a read. The first caller to observe it also gets
	// the error that stopped the loop.
	ErrEndOfStream = errors.New("Receive stream has ended")

	errReaderStopped = errors.New("reader stopped")
)

// PacketSource delivers whole datagrams.
type PacketSource interface {
	ReadPacket(buf []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// Reader pulls datagrams from a PacketSource on its own goroutine and appends
// them to a FIFO byte buffer. Consumers take exact-sized chunks off the front
// with Read, independently of how the bytes were split into datagrams.
type Reader struct {
	src     PacketSource
	bufSize int

	mu       sync.Mutex
	buf      bytes.Buffer
	ready    chan struct{}
	cause    error
	reported bool

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	log *zap.Logger
}

func NewReader(src PacketSource, options Options) *Reader {
	return &Reader{
		src:     src,
		bufSize: options.readBufferSize(),
		ready:   make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     options.logger().Named("reader"),
	}
}

// Start launches the receive loop.
func (r *Reader) Start() {
	if r.isStopping() {
		return
	}

	if r.started.CompareAndSwap(false, true) {
		go r.receiveLoop()
	}
}

func (r *Reader) receiveLoop() {
	defer close(r.done)

	packet := make([]byte, r.bufSize)

	for {
		n, err := r.src.ReadPacket(packet)
		if err != nil {
			if r.isStopping() {
				err = errReaderStopped
			} else {
				r.log.Warn("Receive loop failed", zap.Error(err))
			}

			r.mu.Lock()
			r.cause = err
			r.notifyLocked()
			r.mu.Unlock()
			return
		}

		if n == 0 {
			continue
		}

		r.mu.Lock()
		r.buf.Write(packet[:n])
		r.notifyLocked()
		r.mu.Unlock()
	}
}

// notifyLocked wakes every waiting reader. r.mu must be held.
func (r *Reader) notifyLocked() {
	close(r.ready)
	r.ready = make(chan struct{})
}

// Read blocks until n bytes are buffered and returns exactly those bytes,
// removing them from the buffer. It returns ErrTimeout if timeout elapses
// first; a timeout of zero or less waits indefinitely.
func (r *Reader) Read(n int, timeout time.Duration) ([]byte, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		r.mu.Lock()

		if r.buf.Len() >= n {
			out := make([]byte, n)
			copy(out, r.buf.Next(n))
			r.mu.Unlock()
			return out, nil
		}

		if r.cause != nil {
			err := r.endOfStreamLocked()
			r.mu.Unlock()
			return nil, err
		}

		ready := r.ready
		r.mu.Unlock()

		select {
		case <-ready:
		case <-deadline:
			return nil, ErrTimeout
		}
	}
}

func (r *Reader) endOfStreamLocked() error {
	if r.reported {
		return ErrEndOfStream
	}

	r.reported = true
	return fmt.Errorf("%w: %w", ErrEndOfStream, r.cause)
}

// Drain returns everything currently buffered without waiting. It returns
// nil when the buffer is empty.
func (r *Reader) Drain() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.buf.Len() == 0 {
		return nil
	}

	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	r.buf.Reset()

	return out
}

// Buffered returns the number of bytes waiting to be read.
func (r *Reader) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.buf.Len()
}

// Stop ends the receive loop and waits for it to exit. Bytes already
// buffered can still be read; after that reads return ErrEndOfStream.
func (r *Reader) Stop() error {
	var err error

	r.stopOnce.Do(func() {
		close(r.stop)

		if !r.started.Load() {
			r.mu.Lock()
			r.cause = errReaderStopped
			r.notifyLocked()
			r.mu.Unlock()
			close(r.done)
			return
		}

		select {
		case <-r.done:
			// The loop already exited on its own
		default:
			// Unblock the pending ReadPacket
			err = r.src.SetReadDeadline(time.Now())
		}
	})

	<-r.done

	return err
}

func (r *Reader) isStopping() bool {
	select {
	case <-r.stop:
		return true

	default:
		return false
	}
}
