package tunnel

import (
	"context"
	"sync"
	"time"

	"goicb/util"
)

// healthInterval is how often the manager checks that the gateway
// connection is still up.
const healthInterval = 10 * time.Second

// Manager runs an SSHTunnel with background health checks, so a
// silently dropped gateway connection is reported rather than
// discovered on the next forwarded write.
type Manager struct {
	tunnel *SSHTunnel
	logger *util.Logger
	stop   chan struct{}
	once   sync.Once
}

// NewManager returns a Manager for the given tunnel.
func NewManager(t *SSHTunnel, logger *util.Logger) *Manager {
	return &Manager{tunnel: t, logger: logger, stop: make(chan struct{})}
}

// Start connects the tunnel and begins watching its health.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.tunnel.Connect(ctx); err != nil {
		return err
	}
	go m.watch(ctx)
	return nil
}

// Stop ends the health checks and closes the tunnel. Safe to call more
// than once.
func (m *Manager) Stop() error {
	m.once.Do(func() { close(m.stop) })
	return m.tunnel.Close()
}

func (m *Manager) watch(ctx context.Context) {
	tick := time.NewTicker(healthInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-tick.C:
			if !m.tunnel.IsAlive() {
				m.logger.Error("SSH tunnel connection lost")
				return
			}
		}
	}
}
