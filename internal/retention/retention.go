// Package retention runs the periodic sweep that evicts disconnected
// sessions whose rings have gone empty (spec.md §3 "Sessions live until
// their ring entries are all evicted or until an explicit clear"). The
// teacher has no scheduler of its own; this is grounded on
// github.com/robfig/cron/v3 as used elsewhere in the retrieval pack, since
// the core's Non-goals exclude a durable log but not bounded-memory upkeep.
package retention

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/store"
)

// Sweeper evicts disconnected, history-empty sessions from the registry on
// a cron schedule.
type Sweeper struct {
	cron *cron.Cron
	log  *logrus.Entry
}

// New builds a Sweeper that runs every interval (a cron spec, e.g. "@every 5m").
func New(spec string, st *store.Store, reg *registry.Registry, log *logrus.Entry) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() { sweep(st, reg, log) })
	if err != nil {
		return nil, err
	}
	return &Sweeper{cron: c, log: log}, nil
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweep evicts every disconnected session whose timeline now holds no
// events for it (§3 "Lifecycle"). A disconnected session that still has
// retained events is left in place — its history remains queryable.
func sweep(st *store.Store, reg *registry.Registry, log *logrus.Entry) {
	for _, sessionID := range reg.Disconnected() {
		if hasEvents(st, sessionID) {
			continue
		}
		reg.Evict(sessionID)
		log.WithField("sessionId", sessionID).Debug("retention sweep evicted empty disconnected session")
	}
}

func hasEvents(st *store.Store, sessionID string) bool {
	for _, evt := range st.AllEvents() {
		if evt.SessionID == sessionID {
			return true
		}
	}
	return false
}
