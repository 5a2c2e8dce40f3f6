package matchmaker

import (
	"fmt"
	"math/rand"

	"github.com/webgames/backend/internal/session"
)

const portAttempts = 32

// allocatePorts samples count distinct host ports from the configured
// range. Uniqueness across live parties is best-effort: the range is wide
// relative to concurrent parties, and collisions are rejected with a
// bounded retry.
func (m *Matchmaker) allocatePorts(t *session.Txn, count int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}

	start, stop := m.cfg.GamePortRangeStart, m.cfg.GamePortRangeStop
	if stop <= start {
		return nil, fmt.Errorf("invalid port range [%d, %d)", start, stop)
	}

	used := make(map[int]bool)
	for _, partyID := range t.PartyIDs() {
		if party, ok := t.Party(partyID); ok {
			for _, port := range party.Ports {
				used[port] = true
			}
		}
	}

	ports := make([]int, 0, count)
	for len(ports) < count {
		allocated := false
		for attempt := 0; attempt < portAttempts; attempt++ {
			port := start + rand.Intn(stop-start)
			if used[port] {
				continue
			}
			used[port] = true
			ports = append(ports, port)
			allocated = true
			break
		}
		if !allocated {
			return nil, fmt.Errorf("no free port in [%d, %d) after %d attempts", start, stop, portAttempts)
		}
	}
	return ports, nil
}
