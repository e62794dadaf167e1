package overnight

import (
	"fmt"
	"time"
)

// TimeBudget tracks elapsed wall time against a global limit so long
// discovery runs can stop cleanly between work items.
type TimeBudget struct {
	max   time.Duration
	start time.Time
	now   func() time.Time

	passStart map[string]time.Time
	passTimes map[string]time.Duration
}

func NewTimeBudget(max time.Duration) *TimeBudget {
	b := &TimeBudget{
		max:       max,
		now:       time.Now,
		passStart: map[string]time.Time{},
		passTimes: map[string]time.Duration{},
	}
	b.start = b.now()
	return b
}

func (b *TimeBudget) Elapsed() time.Duration { return b.now().Sub(b.start) }

func (b *TimeBudget) Remaining() time.Duration {
	r := b.max - b.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

func (b *TimeBudget) Expired() bool { return b.Elapsed() >= b.max }

func (b *TimeBudget) StartPass(name string) { b.passStart[name] = b.now() }

func (b *TimeBudget) EndPass(name string) {
	if t0, ok := b.passStart[name]; ok {
		b.passTimes[name] = b.now().Sub(t0)
		delete(b.passStart, name)
	}
}

// PassTime returns how long a finished pass took.
func (b *TimeBudget) PassTime(name string) time.Duration { return b.passTimes[name] }

func fmtDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
