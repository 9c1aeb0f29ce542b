// Package netprobe answers "is the network usable right now" with one short TCP dial.
package netprobe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Prober is the narrow reachability contract used by the recognition selector.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Target is a fixed host:port probed with a bounded dial.
type Target struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Reachable implements Prober.
func (t Target) Reachable(ctx context.Context) bool {
	return IsReachable(ctx, t.Host, t.Port, t.Timeout)
}

// IsReachable dials host:port and reports success. It never blocks past timeout
// and treats every failure (refusal, DNS, deadline) as unreachable.
func IsReachable(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
