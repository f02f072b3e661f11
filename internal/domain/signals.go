package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// JSON keys of the recognized signals. They double as the persisted layout.
const (
	SignalBudgetUsed     = "budgetUsed"
	SignalOverdueBills   = "overdueBills"
	SignalSleepHours     = "sleepHours"
	SignalWaterCups      = "waterCups"
	SignalSteps          = "steps"
	SignalWellnessScore  = "wellnessScore"
	SignalTasksCompleted = "tasksCompleted"
	SignalTotalTasks     = "totalTasks"
	SignalEventsToday    = "eventsToday"
)

// Signals is the flat set of domain metrics pushed by producers.
//
// A nil field means the signal is unknown, which is not the same as zero.
// Counts are carried as float64 so that producer garbage is tolerated
// rather than rejected; range checks are the producer's job.
type Signals struct {
	BudgetUsed     *float64
	OverdueBills   *float64
	SleepHours     *float64
	WaterCups      *float64
	Steps          *float64
	WellnessScore  *float64
	TasksCompleted *float64
	TotalTasks     *float64
	EventsToday    *float64

	// Extra holds unrecognized keys verbatim (compacted JSON).
	Extra map[string]json.RawMessage
}

// Num returns a pointer to v, for building Signals literals.
func Num(v float64) *float64 {
	return &v
}

type signalField struct {
	key string
	ptr **float64
}

func (s *Signals) fields() []signalField {
	return []signalField{
		{SignalBudgetUsed, &s.BudgetUsed},
		{SignalOverdueBills, &s.OverdueBills},
		{SignalSleepHours, &s.SleepHours},
		{SignalWaterCups, &s.WaterCups},
		{SignalSteps, &s.Steps},
		{SignalWellnessScore, &s.WellnessScore},
		{SignalTasksCompleted, &s.TasksCompleted},
		{SignalTotalTasks, &s.TotalTasks},
		{SignalEventsToday, &s.EventsToday},
	}
}

// Merge returns a copy of s where every key present in partial overwrites
// the corresponding key of s. Keys absent from partial are kept.
func (s Signals) Merge(partial Signals) Signals {
	next := s.Clone()
	dst := next.fields()
	for i, f := range partial.fields() {
		if *f.ptr != nil {
			v := **f.ptr
			*dst[i].ptr = &v
		}
	}
	if len(partial.Extra) > 0 {
		if next.Extra == nil {
			next.Extra = make(map[string]json.RawMessage, len(partial.Extra))
		}
		for k, raw := range partial.Extra {
			next.Extra[k] = bytes.Clone(raw)
		}
	}
	return next
}

// Clone returns a deep copy of s.
func (s Signals) Clone() Signals {
	var out Signals
	dst := out.fields()
	for i, f := range s.fields() {
		if *f.ptr != nil {
			v := **f.ptr
			*dst[i].ptr = &v
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, raw := range s.Extra {
			out.Extra[k] = bytes.Clone(raw)
		}
	}
	return out
}

// IsEmpty reports whether no signal, recognized or not, is present.
func (s Signals) IsEmpty() bool {
	for _, f := range s.fields() {
		if *f.ptr != nil {
			return false
		}
	}
	return len(s.Extra) == 0
}

// Equal compares two signal sets by their canonical JSON encoding.
func (s Signals) Equal(other Signals) bool {
	a, errA := json.Marshal(s)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// MarshalJSON encodes the set as one flat object. Unknown keys are written
// back as they were received; a recognized key always wins over an extra
// with the same name.
func (s Signals) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+9)
	maps.Copy(out, s.Extra)
	for _, f := range s.fields() {
		if *f.ptr == nil {
			continue
		}
		raw, err := json.Marshal(**f.ptr)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.key, err)
		}
		out[f.key] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat object. JSON null for a key, or for the whole
// document, means absent. A recognized key holding a non-number fails with
// ErrInvalidSignals.
func (s *Signals) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignals, err)
	}

	var next Signals
	recognized := make(map[string]**float64, 9)
	for _, f := range next.fields() {
		recognized[f.key] = f.ptr
	}

	for key, value := range raw {
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		if ptr, ok := recognized[key]; ok {
			var v float64
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidSignals, key, err)
			}
			*ptr = &v
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSignals, key, err)
		}
		if next.Extra == nil {
			next.Extra = make(map[string]json.RawMessage)
		}
		next.Extra[key] = compact.Bytes()
	}

	*s = next
	return nil
}
