package world

// Snapshot is the read-only view of a world returned to presentation
// adapters. Field names follow the wire format consumed by clients.
type Snapshot struct {
	Countries     map[string]CountrySnapshot `json:"countries"`
	Events        []EventSnapshot            `json:"events"`
	MeetingNumber int                        `json:"meeting_number"`
}

// CountrySnapshot is a country's view data.
type CountrySnapshot struct {
	Code          string             `json:"code"`
	Leader        Leader             `json:"leader"`
	Relationships map[string]float64 `json:"relationships"`
}

// EventSnapshot is an event's view data.
type EventSnapshot struct {
	ID          string `json:"eid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"e_type"`
	CyclesAlive int    `json:"cycles_alive"`
	Resolved    bool   `json:"resolved"`
	Addressed   bool   `json:"addressed"`
	Audio       string `json:"audio_base64,omitempty"`
}

// Snapshot builds a deep view copy of the world. Mutating the snapshot
// never touches live state.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{
		Countries:     make(map[string]CountrySnapshot, len(w.Countries)),
		Events:        make([]EventSnapshot, 0, len(w.Events)),
		MeetingNumber: w.MeetingNumber,
	}
	for code, c := range w.Countries {
		leader := *c.Leader
		leader.Traits = make(map[string]float64, len(c.Leader.Traits))
		for k, v := range c.Leader.Traits {
			leader.Traits[k] = v
		}
		rels := make(map[string]float64, len(c.Relationships))
		for k, v := range c.Relationships {
			rels[k] = v
		}
		snap.Countries[code] = CountrySnapshot{
			Code:          code,
			Leader:        leader,
			Relationships: rels,
		}
	}
	for _, e := range w.Events {
		snap.Events = append(snap.Events, EventSnapshot{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Type:        e.Type,
			CyclesAlive: e.CyclesAlive,
			Resolved:    e.Resolved,
			Addressed:   e.Addressed,
			Audio:       e.Audio,
		})
	}
	return snap
}
