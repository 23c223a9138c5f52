/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package expire implements C12, the background expiration sweeper: a
// periodic task that samples N random keys from each database, evicts
// those past expiry, and loops again within the same tick if the sampled
// expired ratio exceeds a threshold (§4.6). Lazy expiry on every
// store.Facade.Get remains authoritative; this sweeper only bounds
// worst-case memory growth from keys nobody ever reads again. Grounded in
// the teacher's scm/metrics.go background-ticker shape (a single
// time.Ticker-driven goroutine, atomic/logrus status reporting, no
// per-iteration allocation beyond what the sample itself needs).
package expire

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/launix-de/aikv/store"
)

// Config controls one sweeper instance. Zero-value Interval/SampleSize
// fall back to the defaults below so a zero Config is still usable.
type Config struct {
	// Interval between ticks.
	Interval time.Duration
	// SampleSize is the number of keys sampled per database per loop
	// iteration (Redis's ACTIVE_EXPIRE_CYCLE_KEYS_PER_LOOP default is 20).
	SampleSize int
	// Threshold is the fraction (0, 1] of sampled keys found expired
	// above which the sweeper loops again within the same tick instead
	// of waiting for the next one.
	Threshold float64
	// MaxLoopsPerTick bounds the same-tick re-loop so a database that
	// never drops below Threshold cannot starve the ticker entirely.
	MaxLoopsPerTick int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.SampleSize <= 0 {
		c.SampleSize = 20
	}
	if c.Threshold <= 0 {
		c.Threshold = 0.25
	}
	if c.MaxLoopsPerTick <= 0 {
		c.MaxLoopsPerTick = 16
	}
	return c
}

// Sweeper runs the periodic task against every database of a
// store.Sweeper-capable Facade.
type Sweeper struct {
	facade store.Sweeper
	ndb    int
	cfg    Config
	log    *logrus.Entry

	stop chan struct{}
	done chan struct{}
}

// New builds a Sweeper over facade (which must also implement
// store.Sweeper; MemoryBackend, PersistentBackend and
// observability.InstrumentedFacade all do) spanning ndb databases.
func New(facade store.Sweeper, ndb int, cfg Config, log *logrus.Entry) *Sweeper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sweeper{
		facade: facade,
		ndb:    ndb,
		cfg:    cfg.withDefaults(),
		log:    log,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run blocks, ticking until ctx is cancelled or Stop is called. Intended to
// be launched in its own goroutine from main.go.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Stop requests Run to return and blocks until it has.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// tick runs one sweep pass over every database, re-looping within the
// databases that exceeded the expired-ratio threshold.
func (s *Sweeper) tick() {
	for db := 0; db < s.ndb; db++ {
		for loop := 0; loop < s.cfg.MaxLoopsPerTick; loop++ {
			sampled, evicted := s.facade.Sweep(db, s.cfg.SampleSize)
			if sampled == 0 {
				break
			}
			if evicted > 0 {
				s.log.WithFields(logrus.Fields{
					"db":       db,
					"sampled":  sampled,
					"evicted":  evicted,
				}).Debug("expiration sweep")
			}
			ratio := float64(evicted) / float64(sampled)
			if ratio < s.cfg.Threshold {
				break
			}
		}
	}
}
