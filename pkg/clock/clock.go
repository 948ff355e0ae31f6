// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package clock

import (
	"time"
)

// Emulated time is only paid back once at least this much has accrued.
const Threshold = 10 * time.Millisecond

// Synchronizer throttles emulated execution to a target frequency by
// sleeping whenever emulated time runs ahead of wall time.
type Synchronizer struct {
	mhz         float64
	accumulated float64
	started     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

type Option func(*Synchronizer)

// WithTimeSource replaces the wall clock and the sleep function.
func WithTimeSource(now func() time.Time, sleep func(time.Duration)) Option {
	return func(c *Synchronizer) {
		c.now = now
		c.sleep = sleep
	}
}

func NewSynchronizer(mhz float64, opts ...Option) *Synchronizer {
	c := &Synchronizer{
		mhz:   mhz,
		now:   time.Now,
		sleep: time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.started = c.now()
	return c
}

func (c *Synchronizer) Frequency() float64 {
	return c.mhz
}

func (c *Synchronizer) SetFrequency(mhz float64) {
	c.mhz = mhz
}

// Start restarts the wall timer. It may be called any number of times.
func (c *Synchronizer) Start() {
	c.started = c.now()
}

func (c *Synchronizer) Stop() {
	c.accumulated = 0
}

// TryWait accounts for cycles emulated at the target frequency and sleeps
// once the pending time reaches Threshold.
func (c *Synchronizer) TryWait(cycles int) {
	if c.mhz <= 0 {
		return
	}

	c.accumulated += float64(cycles) / c.mhz

	elapsed := float64(c.now().Sub(c.started).Microseconds())
	pending := time.Duration(c.accumulated-elapsed) * time.Microsecond

	if pending < Threshold {
		return
	}

	c.sleep(pending.Round(time.Millisecond))
	c.accumulated = 0
	c.started = c.now()
}
