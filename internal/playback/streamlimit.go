package playback

import (
	"net"
	"sync"
)

// StreamLimiter tracks and limits concurrent streams per IP and total.
type StreamLimiter struct {
	mu         sync.Mutex
	ipCounts   map[string]int
	totalCount int
	maxPerIP   int
	maxTotal   int
}

// NewStreamLimiter creates a limiter. A limit of 0 means unlimited.
func NewStreamLimiter(maxPerIP, maxTotal int) *StreamLimiter {
	return &StreamLimiter{
		ipCounts: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// TryAcquire attempts to acquire a stream slot for the given IP.
// Returns true if the stream is allowed, false if it would exceed limits.
func (l *StreamLimiter) TryAcquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxTotal > 0 && l.totalCount >= l.maxTotal {
		return false
	}
	if l.maxPerIP > 0 && l.ipCounts[ip] >= l.maxPerIP {
		return false
	}

	l.ipCounts[ip]++
	l.totalCount++
	return true
}

// Release releases a stream slot for the given IP.
func (l *StreamLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ipCounts[ip] > 0 {
		l.ipCounts[ip]--
		if l.ipCounts[ip] == 0 {
			delete(l.ipCounts, ip)
		}
	}
	if l.totalCount > 0 {
		l.totalCount--
	}
}

// Stats returns the number of open streams and distinct IPs.
func (l *StreamLimiter) Stats() (totalCount int, ipCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalCount, len(l.ipCounts)
}

// extractIP extracts the IP address from a remote address string (ip:port format).
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr // Return as-is if can't split
	}
	return host
}
