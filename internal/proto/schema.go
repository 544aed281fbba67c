package proto

import (
	"github.com/invopop/jsonschema"
)

// WireSchemas reflects the JSON schemas for every message family carried by
// the bridge, keyed by a stable document name. The schema subcommand writes
// them to disk and the protocol tests validate samples against them.
func WireSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	sim := reflector.Reflect(new(SimMessage))
	sim.Title = "Simulation Message"
	sim.Description = "Datagram payloads received from the DCS export script."

	client := reflector.Reflect(new(ClientMessage))
	client.Title = "Client Message"
	client.Description = "Messages received from browser websocket clients."

	st := reflector.Reflect(new(StatePayload))
	st.Title = "State Payload"
	st.Description = "Full world snapshot pushed to browser clients."

	ack := reflector.Reflect(new(Ack))
	ack.Title = "Command Acknowledgement"
	ack.Description = "Reply confirming a client command was forwarded."

	return map[string]*jsonschema.Schema{
		"sim_message":    sim,
		"client_message": client,
		"state_payload":  st,
		"ack":            ack,
	}
}
