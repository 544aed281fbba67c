package export

import (
	"context"
	"log"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// GreptimeWriter ships site telemetry rows to GreptimeDB via the ingester
// client.
type GreptimeWriter struct {
	client greptime.Client
	db     string
	table  string
}

// NewGreptimeWriter creates a GreptimeDB writer and auto-creates the table
// if needed.
func NewGreptimeWriter(endpoint, database, tableName string) (*GreptimeWriter, error) {
	ctx := ingesterContext.NewContext(context.Background())
	client, err := greptime.NewClient(ctx, &greptime.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	if tableName == "" {
		tableName = "site_telemetry"
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + tableName + ` (
  bridge_id STRING TAG,
  site_id STRING TAG,
  mission_time DOUBLE,
  system_state DOUBLE,
  radar_mode DOUBLE,
  antenna_az DOUBLE,
  antenna_el DOUBLE,
  track_quality DOUBLE,
  missiles_ready DOUBLE,
  missiles_in_flight DOUBLE,
  eng_auth STRING,
  auto_eng STRING,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	return &GreptimeWriter{client: client, db: database, table: tableName}, nil
}

// WriteBatch implements Writer.
func (w *GreptimeWriter) WriteBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.NewContext(context.Background())

	tbl := table.New(w.table)
	tbl.AddTagColumn("bridge_id", types.StringType, 0)
	tbl.AddTagColumn("site_id", types.StringType, 0)
	tbl.AddFieldColumn("mission_time", types.Float64Type)
	tbl.AddFieldColumn("system_state", types.Float64Type)
	tbl.AddFieldColumn("radar_mode", types.Float64Type)
	tbl.AddFieldColumn("antenna_az", types.Float64Type)
	tbl.AddFieldColumn("antenna_el", types.Float64Type)
	tbl.AddFieldColumn("track_quality", types.Float64Type)
	tbl.AddFieldColumn("missiles_ready", types.Float64Type)
	tbl.AddFieldColumn("missiles_in_flight", types.Float64Type)
	tbl.AddFieldColumn("eng_auth", types.StringType)
	tbl.AddFieldColumn("auto_eng", types.StringType)
	tbl.SetTimeIndex("ts", types.TimestampType)

	for _, r := range rows {
		tbl.AppendTagValue("bridge_id", r.BridgeID)
		tbl.AppendTagValue("site_id", r.SiteID)
		tbl.AppendFieldValue("mission_time", r.MissionTime)
		tbl.AppendFieldValue("system_state", r.SystemState)
		tbl.AppendFieldValue("radar_mode", r.RadarMode)
		tbl.AppendFieldValue("antenna_az", r.AntennaAz)
		tbl.AppendFieldValue("antenna_el", r.AntennaEl)
		tbl.AppendFieldValue("track_quality", r.TrackQuality)
		tbl.AppendFieldValue("missiles_ready", r.MissilesReady)
		tbl.AppendFieldValue("missiles_in_flight", r.MissilesInFlight)
		tbl.AppendFieldValue("eng_auth", strconv.FormatBool(r.EngAuth))
		tbl.AppendFieldValue("auto_eng", strconv.FormatBool(r.AutoEng))
		tbl.AppendTimeIndex(r.Timestamp)
	}

	if err := w.client.Write(ctx, w.db, []*table.Table{tbl}); err != nil {
		log.Printf("[GreptimeWriter] write failed: %v", err)
		return err
	}
	return nil
}
