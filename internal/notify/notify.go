// Package notify publishes table-refresh events over NATS so downstream
// consumers (dashboards, caches) know when to re-query the views.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the prefix for refresh subjects; the table name is
// appended, e.g. "fleetindex.refreshed.airline_features".
const SubjectPrefix = "fleetindex.refreshed."

// RefreshEvent is the payload published after a table refresh commits.
type RefreshEvent struct {
	Table       string    `json:"table"`
	Rows        int       `json:"rows"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Publisher sends refresh events to a NATS server.
type Publisher struct {
	nc *nats.Conn
}

// Connect connects to the NATS server at url.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("fleetindex-loader"),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close flushes and closes the connection.
func (p *Publisher) Close() {
	if err := p.nc.Flush(); err != nil {
		log.Printf("nats flush: %v", err)
	}
	p.nc.Close()
}

// TableRefreshed publishes a refresh event. Publish failures are logged,
// not returned: notifications are best-effort and must never fail a
// committed load.
func (p *Publisher) TableRefreshed(table string, rows int) {
	payload, err := json.Marshal(RefreshEvent{
		Table:       table,
		Rows:        rows,
		RefreshedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("marshal refresh event: %v", err)
		return
	}
	if err := p.nc.Publish(SubjectPrefix+table, payload); err != nil {
		log.Printf("publish refresh event for %s: %v", table, err)
	}
}
