package timeline

import "sort"

// List keeps events sorted ascending by Time. Events with equal times stay
// in insertion order.
type List struct {
	events []*Event
}

func (l *List) Len() int { return len(l.events) }

func (l *List) At(i int) *Event { return l.events[i] }

// Events returns a copy of the ordered events.
func (l *List) Events() []*Event {
	return append([]*Event(nil), l.events...)
}

// UpperBound returns the index of the first event later than t, which is
// also the number of events at or before t.
func (l *List) UpperBound(t float64) int {
	return sort.Search(len(l.events), func(i int) bool { return l.events[i].Time > t })
}

// LowerBound returns the index of the first event at or after t.
func (l *List) LowerBound(t float64) int {
	return sort.Search(len(l.events), func(i int) bool { return l.events[i].Time >= t })
}

// Insert places e after every event at or before e.Time and returns its index.
func (l *List) Insert(e *Event) int {
	i := l.UpperBound(e.Time)
	l.events = append(l.events, nil)
	copy(l.events[i+1:], l.events[i:])
	l.events[i] = e
	return i
}

// IndexOf finds e by identity, or returns -1.
func (l *List) IndexOf(e *Event) int {
	for i := l.LowerBound(e.Time); i < len(l.events) && l.events[i].Time == e.Time; i++ {
		if l.events[i] == e {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the event at i.
func (l *List) RemoveAt(i int) *Event {
	e := l.events[i]
	copy(l.events[i:], l.events[i+1:])
	l.events[len(l.events)-1] = nil
	l.events = l.events[:len(l.events)-1]
	return e
}

// Sorted reports whether the list order holds. It exists for tests and
// consistency checks.
func (l *List) Sorted() bool {
	return sort.SliceIsSorted(l.events, func(i, j int) bool { return l.events[i].Time < l.events[j].Time })
}

func (l *List) Reset() {
	l.events = nil
}
