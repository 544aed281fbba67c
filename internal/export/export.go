package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"samsim/server/internal/state"
)

// Row is one exported site telemetry sample.
type Row struct {
	Timestamp        time.Time
	BridgeID         string
	SiteID           string
	MissionTime      float64
	SystemState      float64
	RadarMode        float64
	AntennaAz        float64
	AntennaEl        float64
	TrackQuality     float64
	MissilesReady    float64
	MissilesInFlight float64
	EngAuth          bool
	AutoEng          bool
}

// Writer receives site telemetry rows. Implementations must tolerate being
// called from the ingestion path and return quickly.
type Writer interface {
	WriteBatch(rows []Row) error
}

// RowsFromStatus flattens one applied status update into export rows, one
// per reported site, sorted by site id for stable output.
func RowsFromStatus(bridgeID string, missionTime float64, sites map[string]state.SiteUpdate, now time.Time) []Row {
	if len(sites) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sites))
	for id := range sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		site := sites[id]
		rows = append(rows, Row{
			Timestamp:        now,
			BridgeID:         bridgeID,
			SiteID:           id,
			MissionTime:      missionTime,
			SystemState:      float64(site.SystemState),
			RadarMode:        float64(site.RadarMode),
			AntennaAz:        site.AntennaAz,
			AntennaEl:        site.AntennaEl,
			TrackQuality:     float64(site.TrackQuality),
			MissilesReady:    float64(site.MissilesReady),
			MissilesInFlight: float64(site.MissilesInFlight),
			EngAuth:          site.EngAuth,
			AutoEng:          site.AutoEng,
		})
	}
	return rows
}

// StdoutWriter prints rows as single lines, for print-only runs.
type StdoutWriter struct {
	Out io.Writer
}

// WriteBatch implements Writer.
func (w *StdoutWriter) WriteBatch(rows []Row) error {
	if w == nil || w.Out == nil {
		return nil
	}
	for _, r := range rows {
		_, err := fmt.Fprintf(w.Out, "[%s] site=%s t=%.1f state=%.0f radar=%.0f az=%.1f el=%.1f quality=%.0f ready=%.0f inflight=%.0f engAuth=%t autoEng=%t\n",
			r.Timestamp.Format(time.RFC3339), r.SiteID, r.MissionTime,
			r.SystemState, r.RadarMode, r.AntennaAz, r.AntennaEl,
			r.TrackQuality, r.MissilesReady, r.MissilesInFlight, r.EngAuth, r.AutoEng)
		if err != nil {
			return err
		}
	}
	return nil
}

// MultiWriter fans rows out to several writers; the first error wins but
// every writer still sees the batch.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter combines writers, skipping nil entries.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	kept := make([]Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			kept = append(kept, w)
		}
	}
	return &MultiWriter{writers: kept}
}

// WriteBatch implements Writer.
func (m *MultiWriter) WriteBatch(rows []Row) error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.WriteBatch(rows); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
