package printer

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultPort is the raw printing port most network thermal printers expose.
const DefaultPort = "9100"

// NetworkDriver talks to raw TCP printers. Discovery probes a configured
// address list; there is no broadcast discovery.
type NetworkDriver struct {
	Addrs       []string
	DialTimeout time.Duration
}

func (d *NetworkDriver) timeout() time.Duration {
	if d.DialTimeout <= 0 {
		return 3 * time.Second
	}
	return d.DialTimeout
}

// Scan dials every configured address in parallel and keeps the ones that answer.
func (d *NetworkDriver) Scan(ctx context.Context) ([]Device, error) {
	type probe struct {
		i  int
		ok bool
	}
	addrs := make([]string, len(d.Addrs))
	for i, a := range d.Addrs {
		addrs[i] = withPort(a)
	}
	res := make(chan probe, len(addrs))
	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			c, err := d.dial(ctx, addr)
			if err == nil {
				c.Close()
			}
			res <- probe{i: i, ok: err == nil}
		}(i, addr)
	}
	wg.Wait()
	close(res)

	found := make([]bool, len(addrs))
	for p := range res {
		found[p.i] = p.ok
	}
	var out []Device
	for i, ok := range found {
		if ok {
			out = append(out, Device{Name: addrs[i], Address: addrs[i]})
		}
	}
	return out, ctx.Err()
}

func (d *NetworkDriver) Open(ctx context.Context, address string) (Conn, error) {
	c, err := d.dial(ctx, withPort(address))
	if err != nil {
		return nil, err
	}
	return &netConn{c: c, timeout: d.timeout()}, nil
}

func (d *NetworkDriver) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.timeout()}
	return dialer.DialContext(ctx, "tcp", addr)
}

type netConn struct {
	c       net.Conn
	timeout time.Duration
}

func (n *netConn) Write(ctx context.Context, payload []byte) error {
	deadline := time.Now().Add(n.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := n.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := n.c.Write(payload)
	return err
}

func (n *netConn) Close() error { return n.c.Close() }

func withPort(addr string) string {
	addr = strings.TrimSpace(addr)
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, DefaultPort)
}
