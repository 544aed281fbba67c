package state

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Site field values reported by the simulation default to these when a
// status update omits them. The values mirror what the export script sends
// for a freshly initialised site.
const (
	DefaultAntennaEl     = 5.0
	DefaultMissilesReady = 6
)

// SiteState is the mirrored state of one tracked simulation site. The JSON
// layout is the projection pushed to subscribers.
type SiteState struct {
	SiteID           string            `json:"siteId"`
	SystemState      int               `json:"systemState"`
	RadarMode        int               `json:"radarMode"`
	AntennaAz        float64           `json:"antennaAz"`
	AntennaEl        float64           `json:"antennaEl"`
	Targets          []json.RawMessage `json:"targets"`
	Tracked          json.RawMessage   `json:"tracked"`
	TrackQuality     int               `json:"trackQuality"`
	MissilesReady    int               `json:"missilesReady"`
	MissilesInFlight int               `json:"missilesInFlight"`
	EngAuth          bool              `json:"engAuth"`
	AutoEng          bool              `json:"autoEng"`
}

// SiteUpdate carries the fields reported for one site in a status update.
// Absent fields fall back to the site defaults, matching the wholesale
// overwrite the simulation export performs.
type SiteUpdate struct {
	SystemState      int               `json:"systemState"`
	RadarMode        int               `json:"radarMode"`
	AntennaAz        float64           `json:"antennaAz"`
	AntennaEl        float64           `json:"antennaEl"`
	Targets          []json.RawMessage `json:"targets"`
	Tracked          json.RawMessage   `json:"tracked"`
	TrackQuality     int               `json:"trackQuality"`
	MissilesReady    int               `json:"missilesReady"`
	MissilesInFlight int               `json:"missilesInFlight"`
	EngAuth          bool              `json:"engAuth"`
	AutoEng          bool              `json:"autoEng"`
}

// UnmarshalJSON applies the site defaults before decoding so omitted fields
// overwrite stale values instead of preserving them.
func (u *SiteUpdate) UnmarshalJSON(data []byte) error {
	type plain SiteUpdate
	v := plain{AntennaEl: DefaultAntennaEl, MissilesReady: DefaultMissilesReady}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = SiteUpdate(v)
	return nil
}

// StatusUpdate is one decoded status message from the simulation.
type StatusUpdate struct {
	MissionTime  float64
	Paused       bool
	WorldObjects []json.RawMessage
	Sites        map[string]SiteUpdate
}

// Snapshot is an independently owned copy of the full store contents.
type Snapshot struct {
	Connected    bool
	MissionTime  float64
	Paused       bool
	Sites        map[string]SiteState
	WorldObjects []json.RawMessage
}

// Summary is the reduced projection served by the status query endpoint.
type Summary struct {
	Connected   bool     `json:"dcsConnected"`
	MissionTime float64  `json:"missionTime"`
	Paused      bool     `json:"paused"`
	Sites       []string `json:"sites"`
}

// Store is the single mutable model of simulation state. One mutex guards
// every mutation and copy; it is never held across network I/O.
type Store struct {
	mu           sync.Mutex
	connected    bool
	lastUpdate   time.Time
	missionTime  float64
	paused       bool
	sites        map[string]*SiteState
	worldObjects []json.RawMessage
}

// NewStore creates an empty store with no sites and no connection.
func NewStore() *Store {
	return &Store{sites: make(map[string]*SiteState)}
}

// SetConnected flips the simulation connection flag without touching any
// other state.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	s.lastUpdate = time.Now()
}

// ApplyStatus atomically merges one status update: connection status and
// world objects are replaced wholesale, each named site is upserted with all
// of its fields overwritten. Sites missing from the update are left as-is;
// nothing removes a site once it exists.
func (s *Store) ApplyStatus(update StatusUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = true
	s.lastUpdate = time.Now()
	s.missionTime = update.MissionTime
	s.paused = update.Paused
	s.worldObjects = update.WorldObjects

	for id, data := range update.Sites {
		site, ok := s.sites[id]
		if !ok {
			site = &SiteState{SiteID: id}
			s.sites[id] = site
		}
		site.SystemState = data.SystemState
		site.RadarMode = data.RadarMode
		site.AntennaAz = data.AntennaAz
		site.AntennaEl = data.AntennaEl
		site.Targets = data.Targets
		site.Tracked = data.Tracked
		site.TrackQuality = data.TrackQuality
		site.MissilesReady = data.MissilesReady
		site.MissilesInFlight = data.MissilesInFlight
		site.EngAuth = data.EngAuth
		site.AutoEng = data.AutoEng
	}
}

// EnsureSite creates a site with default fields if it does not exist yet.
// Used when a client initialises a site before the simulation reports it.
func (s *Store) EnsureSite(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[id]; ok {
		return
	}
	s.sites[id] = &SiteState{
		SiteID:        id,
		AntennaEl:     DefaultAntennaEl,
		MissilesReady: DefaultMissilesReady,
	}
}

// Snapshot copies the full state while holding the mutex so the result can
// be serialised and sent without further locking.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sites := make(map[string]SiteState, len(s.sites))
	for id, site := range s.sites {
		copied := *site
		if copied.Targets == nil {
			copied.Targets = []json.RawMessage{}
		} else {
			copied.Targets = append([]json.RawMessage(nil), site.Targets...)
		}
		sites[id] = copied
	}

	worldObjects := s.worldObjects
	if worldObjects == nil {
		worldObjects = []json.RawMessage{}
	} else {
		worldObjects = append([]json.RawMessage(nil), s.worldObjects...)
	}

	return Snapshot{
		Connected:    s.connected,
		MissionTime:  s.missionTime,
		Paused:       s.paused,
		Sites:        sites,
		WorldObjects: worldObjects,
	}
}

// Summary returns the reduced status projection with site identifiers
// sorted for stable output.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.sites))
	for id := range s.sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return Summary{
		Connected:   s.connected,
		MissionTime: s.missionTime,
		Paused:      s.paused,
		Sites:       ids,
	}
}

// LastUpdate reports when the store last saw traffic from the simulation.
func (s *Store) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}
