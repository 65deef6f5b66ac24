package transport

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/zap"
)

// UDP is the client side of a datagram exchange with a single server.
type UDP struct {
	conn      net.PacketConn
	raddr     *net.UDPAddr
	connected bool

	log   *zap.Logger
	trace bool
}

// Dial opens a UDP socket aimed at options.Host:options.Port.
//
// Without Reuseport the socket is connected, so the kernel filters inbound
// datagrams to the server and reports ICMP errors (e.g. connection refused)
// as read errors. With Reuseport the socket is bound through SO_REUSEPORT and
// left unconnected, which lets several clients share one local port.
func Dial(options Options) (*UDP, error) {
	addr := net.JoinHostPort(options.Host, strconv.Itoa(options.Port))

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("Failed to resolve %s: %w", addr, err)
	}

	network := "udp"
	if raddr.IP.To4() != nil {
		network = "udp4"
	}

	u := &UDP{
		raddr: raddr,
		log:   options.logger(),
		trace: options.Trace,
	}

	if options.Reuseport {
		local := options.LocalAddr
		if local == "" {
			local = ":0"
		}

		u.conn, err = reuseport.ListenPacket(network, local)
		if err != nil {
			return nil, fmt.Errorf("Failed to bind %s: %w", local, err)
		}

		return u, nil
	}

	var laddr *net.UDPAddr
	if options.LocalAddr != "" {
		if laddr, err = net.ResolveUDPAddr(network, options.LocalAddr); err != nil {
			return nil, fmt.Errorf("Failed to resolve %s: %w", options.LocalAddr, err)
		}
	}

	conn, err := net.DialUDP(network, laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("Failed to dial %s: %w", addr, err)
	}

	u.conn = conn
	u.connected = true

	return u, nil
}

// Send writes a single datagram to the server.
func (u *UDP) Send(data []byte) error {
	if u.trace {
		u.log.Debug("Send", zap.String("data", hex.EncodeToString(data)))
	}

	var err error
	if u.connected {
		_, err = u.conn.(*net.UDPConn).Write(data)
	} else {
		_, err = u.conn.WriteTo(data, u.raddr)
	}

	return err
}

// ReadPacket blocks until a datagram from the server arrives and copies it
// into buf. Datagrams from other senders are dropped.
func (u *UDP) ReadPacket(buf []byte) (int, error) {
	for {
		n, from, err := u.conn.ReadFrom(buf)
		if err != nil {
			return 0, err
		}

		if !u.connected && !u.fromServer(from) {
			u.log.Debug("Dropping datagram from unexpected sender",
				zap.Stringer("from", from),
				zap.Int("size", n))
			continue
		}

		if u.trace {
			u.log.Debug("Receive", zap.String("data", hex.EncodeToString(buf[:n])))
		}

		return n, nil
	}
}

func (u *UDP) fromServer(addr net.Addr) bool {
	from, ok := addr.(*net.UDPAddr)
	if !ok {
		return false
	}

	return from.Port == u.raddr.Port && from.IP.Equal(u.raddr.IP)
}

func (u *UDP) SetReadDeadline(t time.Time) error {
	return u.conn.SetReadDeadline(t)
}

func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) RemoteAddr() net.Addr {
	return u.raddr
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
