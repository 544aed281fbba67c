package journal

import (
	"fmt"
	"net"
	"time"
)

// Replay resends the inbound entries of a journal file to a UDP endpoint,
// preserving the recorded inter-arrival gaps scaled by speed. A speed of 2
// plays back twice as fast; zero or negative disables pacing.
func Replay(path, addr string, speed float64) (int, error) {
	entries, err := ReadFile(path)
	if err != nil {
		return 0, err
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return 0, fmt.Errorf("dial replay target %s: %w", addr, err)
	}
	defer conn.Close()

	sent := 0
	var last time.Time
	for _, entry := range entries {
		if entry.Dir != DirInbound {
			continue
		}
		if speed > 0 && !last.IsZero() {
			gap := entry.Time.Sub(last)
			if gap > 0 {
				time.Sleep(time.Duration(float64(gap) / speed))
			}
		}
		last = entry.Time

		if _, err := conn.Write(entry.Payload); err != nil {
			return sent, fmt.Errorf("replay write: %w", err)
		}
		sent++
	}
	return sent, nil
}
