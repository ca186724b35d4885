package worker

import (
	"sync/atomic"

	"github.com/jamesainslie/churn/pkg/churn/types"
)

// Stats accumulates what the workers have done. One instance is shared by
// every worker under a supervisor; all fields are atomic so the dashboard
// and the journal can read a consistent-enough view while workers run.
type Stats struct {
	actions    [6]atomic.Int64
	ticks      atomic.Int64
	recoveries atomic.Int64
	written    atomic.Int64
	freed      atomic.Int64
}

// StatsView is a point-in-time copy of the counters.
type StatsView struct {
	Actions      map[string]int64 `json:"actions"`
	Ticks        int64            `json:"ticks"`
	Recoveries   int64            `json:"recoveries"`
	BytesWritten int64            `json:"bytes_written"`
	BytesFreed   int64            `json:"bytes_freed"`
}

// record folds one completed action into the counters.
func (s *Stats) record(a types.Action, d types.Delta) {
	if a >= 0 && int(a) < len(s.actions) {
		s.actions[a].Add(1)
	}
	if d.Bytes > 0 {
		s.written.Add(d.Bytes)
	} else {
		s.freed.Add(-d.Bytes)
	}
}

// View returns a copy of the current counters.
func (s *Stats) View() StatsView {
	v := StatsView{
		Actions:      make(map[string]int64, len(s.actions)),
		Ticks:        s.ticks.Load(),
		Recoveries:   s.recoveries.Load(),
		BytesWritten: s.written.Load(),
		BytesFreed:   s.freed.Load(),
	}
	for i := range s.actions {
		v.Actions[types.Action(i).String()] = s.actions[i].Load()
	}
	return v
}
