package server

import (
	"errors"
	"net"

	"github.com/eternalApril/lunakv/internal/resp"
)

// errNotCommand is returned by Next for a value that is not a command array
var errNotCommand = errors.New("protocol error: expected array")

// Peer is one connected client. It is owned by the goroutine serving the
// connection and is not safe for concurrent use
type Peer struct {
	conn   net.Conn
	addr   string
	reader *resp.Decoder
	writer *resp.Encoder
	served int
}

// NewPeer wraps a network connection in a RESP decoder and encoder
func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		conn:   conn,
		addr:   conn.RemoteAddr().String(),
		reader: resp.NewDecoder(conn),
		writer: resp.NewEncoder(conn),
	}
}

// Next reads the next request. An empty array yields an empty name and no error;
// any value other than an array yields errNotCommand
func (p *Peer) Next() (string, []resp.Value, error) {
	v, err := p.reader.Read()
	if err != nil {
		return "", nil, err
	}

	if name, args, ok := v.Command(); ok {
		return name, args, nil
	}
	if v.Type == resp.TypeArray {
		return "", nil, nil
	}
	return "", nil, errNotCommand
}

// Reply buffers a reply. Replies reach the client on Flush
func (p *Peer) Reply(v resp.Value) error {
	p.served++
	return p.writer.Write(v)
}

// FlushIfIdle delivers buffered replies once no pipelined request is waiting,
// so a pipelined batch is answered in one write
func (p *Peer) FlushIfIdle() error {
	if p.reader.Buffered() > 0 {
		return nil
	}
	return p.writer.Flush()
}

// Close terminates the underlying network connection
func (p *Peer) Close() error {
	return p.conn.Close()
}

// RemoteAddr names the client for logs
func (p *Peer) RemoteAddr() string {
	return p.addr
}

// Served counts the replies sent so far
func (p *Peer) Served() int {
	return p.served
}
