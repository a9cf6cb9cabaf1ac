package counter

import (
	"doorcount/tracker"
)

// Counts holds the running crossing totals.  Values only ever increase
// for the lifetime of the process.
type Counts struct {
	In       int `json:"in"`
	OutLeft  int `json:"out_left"`
	OutRight int `json:"out_right"`
}

// Out returns the combined exit total
func (c Counts) Out() int {
	return c.OutLeft + c.OutRight
}

// crossingState records where one track identity was last seen relative
// to the counting zones
type crossingState struct {
	hasLast     bool
	lastZone    Zone
	counted     bool
	countedZone Zone
}

// Counter accumulates entry and exit counts from track movement between
// zones.  It is owned by the capture goroutine, callers needing the
// totals elsewhere take a Counts copy.
type Counter struct {
	zones  *Zones
	counts Counts
	state  map[int]*crossingState
}

// NewCounter returns a Counter over the given zones
func NewCounter(zones *Zones) *Counter {
	return &Counter{
		zones: zones,
		state: make(map[int]*crossingState),
	}
}

// Zones returns the counting zones for drawing
func (c *Counter) Zones() *Zones {
	return c.zones
}

// Counts returns a copy of the current totals
func (c *Counter) Counts() Counts {
	return c.counts
}

// Update classifies each track's reference point against the zones and
// increments the counters on zone transitions.  A movement from either
// exit zone into the center band counts as an entry, a movement from the
// center band into an exit zone counts as an exit on that side.  The
// returned Counts copy reflects this frame.
func (c *Counter) Update(tracks []*tracker.Track) Counts {

	live := make(map[int]bool, len(tracks))

	for _, track := range tracks {

		live[track.ID()] = true

		st, exists := c.state[track.ID()]
		if !exists {
			st = &crossingState{}
			c.state[track.ID()] = st
		}

		cur := c.zones.Classify(track.RefPoint())

		// a track appearing for the first time has no prior zone to
		// transition from, so it can never count on its first frame
		if st.hasLast && !st.counted {
			switch {
			case st.lastZone == ZoneCenter && cur == ZoneLeft:
				c.counts.OutLeft++
				st.counted = true
				st.countedZone = cur
			case st.lastZone == ZoneCenter && cur == ZoneRight:
				c.counts.OutRight++
				st.counted = true
				st.countedZone = cur
			case (st.lastZone == ZoneLeft || st.lastZone == ZoneRight) && cur == ZoneCenter:
				c.counts.In++
				st.counted = true
				st.countedZone = cur
			}
		}

		// once the track leaves the zone it was counted into, a later
		// distinct crossing may count again
		if st.counted && cur != st.countedZone {
			st.counted = false
		}

		st.hasLast = true
		st.lastZone = cur
	}

	// drop state for identities no longer tracked
	for id := range c.state {
		if !live[id] {
			delete(c.state, id)
		}
	}

	return c.counts
}
