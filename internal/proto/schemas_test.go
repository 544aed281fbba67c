package proto

import (
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestWireSchemasValidateSamples(t *testing.T) {
	docs := WireSchemas()

	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		doc, ok := docs[name]
		if !ok {
			t.Fatalf("missing schema %s", name)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		s, err := jsonschema.CompileString(name+".schema.json", string(raw))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, payload string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			t.Fatalf("decode sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	simSchema := compile("sim_message")
	validate(simSchema, `{
	  "type":"status",
	  "time":120.5,
	  "paused":false,
	  "sites":{"sam1":{"systemState":2,"radarMode":1,"antennaAz":45.0,"antennaEl":5.0,"targets":[],"tracked":null,"trackQuality":0,"missilesReady":6,"missilesInFlight":0,"engAuth":false,"autoEng":false}},
	  "worldObjects":[{"id":1}]
	}`)
	validate(simSchema, `{"type":"init","time":0,"paused":false,"worldObjects":[],"sites":{}}`)

	clientSchema := compile("client_message")
	validate(clientSchema, `{"type":"command","command":{"cmd":"set_radar","siteId":"sam1"},"siteId":"","groupName":""}`)
	validate(clientSchema, `{"type":"init_site","command":{},"siteId":"sam1","groupName":"SAM Alpha"}`)

	stateSchema := compile("state_payload")
	validate(stateSchema, `{
	  "type":"update",
	  "dcsConnected":true,
	  "missionTime":120.5,
	  "paused":false,
	  "sites":{"sam1":{"siteId":"sam1","systemState":2,"radarMode":1,"antennaAz":45.0,"antennaEl":5.0,"targets":[],"tracked":null,"trackQuality":0,"missilesReady":6,"missilesInFlight":0,"engAuth":false,"autoEng":false}},
	  "worldObjects":[]
	}`)

	ackSchema := compile("ack")
	validate(ackSchema, `{"type":"ack","command":"set_radar"}`)
}
