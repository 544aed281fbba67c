package proto

import (
	"encoding/json"

	"samsim/server/internal/state"
)

// Simulation message type identifiers (datagrams from the export script).
const (
	TypeInit     = "init"
	TypeShutdown = "shutdown"
	TypeStatus   = "status"
	TypeResponse = "response"
)

// Client message type identifiers (websocket messages from the browser).
const (
	TypeCommand  = "command"
	TypeInitSite = "init_site"
	TypeGetState = "get_state"
)

// Outbound payload type identifiers (bridge to browser).
const (
	TypeUpdate = "update"
	TypeState  = "state"
	TypeAck    = "ack"
)

// SimMessage captures an inbound datagram from the simulation. Only the
// discriminator is required; status payload fields are optional.
type SimMessage struct {
	Type         string                      `json:"type"`
	Time         float64                     `json:"time"`
	Paused       bool                        `json:"paused"`
	WorldObjects []json.RawMessage           `json:"worldObjects"`
	Sites        map[string]state.SiteUpdate `json:"sites"`
}

// DecodeSimMessage converts a raw datagram into a structured message.
func DecodeSimMessage(payload []byte) (SimMessage, error) {
	var msg SimMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// StatusUpdate extracts the store-facing update from a status message.
func (m SimMessage) StatusUpdate() state.StatusUpdate {
	return state.StatusUpdate{
		MissionTime:  m.Time,
		Paused:       m.Paused,
		WorldObjects: m.WorldObjects,
		Sites:        m.Sites,
	}
}

// ClientMessage captures an inbound websocket message from the browser.
// Command payloads are kept raw and forwarded verbatim.
type ClientMessage struct {
	Type      string          `json:"type"`
	Command   json.RawMessage `json:"command"`
	SiteID    string          `json:"siteId"`
	GroupName string          `json:"groupName"`
}

// DecodeClientMessage converts raw websocket payloads into a structured
// message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// CommandName extracts the cmd discriminator from a raw command payload for
// acknowledgements. Returns "" when the payload has none.
func CommandName(command json.RawMessage) string {
	var probe struct {
		Cmd string `json:"cmd"`
	}
	if err := json.Unmarshal(command, &probe); err != nil {
		return ""
	}
	return probe.Cmd
}

// InitSiteCommand builds the forwarded simulation command for a client
// init_site request.
type InitSiteCommand struct {
	Cmd    string         `json:"cmd"`
	SiteID string         `json:"siteId"`
	Params InitSiteParams `json:"params"`
}

// InitSiteParams carries the simulation-side parameters for init_site.
type InitSiteParams struct {
	GroupName string `json:"groupName"`
}

// NewInitSiteCommand wraps a site and group name in the wire command shape.
func NewInitSiteCommand(siteID, groupName string) InitSiteCommand {
	return InitSiteCommand{Cmd: TypeInitSite, SiteID: siteID, Params: InitSiteParams{GroupName: groupName}}
}

// StatePayload is the full-state push sent to subscribers, either as the
// periodic "update" broadcast or as a direct "state" reply.
type StatePayload struct {
	Type         string                     `json:"type"`
	DCSConnected bool                       `json:"dcsConnected"`
	MissionTime  float64                    `json:"missionTime"`
	Paused       bool                       `json:"paused"`
	Sites        map[string]state.SiteState `json:"sites"`
	WorldObjects []json.RawMessage          `json:"worldObjects"`
}

// NewStatePayload renders a snapshot as an outbound payload of the given
// type identifier.
func NewStatePayload(typ string, snap state.Snapshot) StatePayload {
	return StatePayload{
		Type:         typ,
		DCSConnected: snap.Connected,
		MissionTime:  snap.MissionTime,
		Paused:       snap.Paused,
		Sites:        snap.Sites,
		WorldObjects: snap.WorldObjects,
	}
}

// EncodeStatePayload marshals a snapshot push.
func EncodeStatePayload(typ string, snap state.Snapshot) ([]byte, error) {
	return json.Marshal(NewStatePayload(typ, snap))
}

// Ack acknowledges a forwarded client command. It confirms the forward
// only, not any simulation-side effect.
type Ack struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// EncodeAck renders a command acknowledgement payload.
func EncodeAck(commandName string) ([]byte, error) {
	return json.Marshal(Ack{Type: TypeAck, Command: commandName})
}
