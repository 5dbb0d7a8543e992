package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stats counts the message files of one channel per location.
type Stats struct {
	Channel    string
	Inbox      int
	Outbox     int
	Deadletter int
	Routing    map[string]int
	Processing map[string]int
	Archive    map[string]int
}

// InFlight returns the number of messages currently claimed by routers or
// consumers.
func (s Stats) InFlight() int {
	return sum(s.Routing) + sum(s.Processing)
}

// Archived returns the number of archived messages across all consumers.
func (s Stats) Archived() int {
	return sum(s.Archive)
}

// Total returns the number of messages in the channel.
func (s Stats) Total() int {
	return s.Inbox + s.Outbox + s.Deadletter + s.InFlight() + s.Archived()
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// Stats counts the messages in every location of the channel.
func (c *Channel) Stats() (Stats, error) {
	st := Stats{
		Channel:    c.name,
		Routing:    make(map[string]int),
		Processing: make(map[string]int),
		Archive:    make(map[string]int),
	}
	for loc, dst := range map[Location]*int{
		Inbox():      &st.Inbox,
		Outbox():     &st.Outbox,
		Deadletter(): &st.Deadletter,
	} {
		names, err := c.List(loc)
		if err != nil {
			return st, err
		}
		*dst = len(names)
	}
	for state, dst := range map[State]map[string]int{
		StateRouting:    st.Routing,
		StateProcessing: st.Processing,
		StateArchive:    st.Archive,
	} {
		owners, err := c.Owners(state)
		if err != nil {
			return st, err
		}
		for _, owner := range owners {
			names, err := c.List(Location{State: state, Owner: owner})
			if err != nil {
				return st, err
			}
			if len(names) > 0 {
				dst[owner] = len(names)
			}
		}
	}
	return st, nil
}

// MessageName builds a sortable message file name of the form
// 20260113T010203Z_label.json from a UTC timestamp.
func MessageName(t time.Time, label string) string {
	return fmt.Sprintf("%s_%s%s", t.UTC().Format("20060102T150405Z"), label, MessageExt)
}

// NewMessageName returns a MessageName for now, with a short random suffix
// so concurrent producers using the same label never collide.
func NewMessageName(label string) string {
	suffix := uuid.NewString()[:8]
	if label == "" {
		return MessageName(time.Now(), suffix)
	}
	return MessageName(time.Now(), label+"_"+suffix)
}
