package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// wsMessage is the envelope for every WebSocket frame, both directions
type wsMessage struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// wsCommand is an inbound client instruction
type wsCommand struct {
	Type string  `json:"type" msgpack:"type"`
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
}

// wantsMsgpack reports whether the client asked for binary encoding,
// either with an Accept header or ?encoding=msgpack.
func wantsMsgpack(r *http.Request) bool {
	if r.URL.Query().Get("encoding") == "msgpack" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, contentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

// writeNegotiated writes data as msgpack or JSON depending on the request
func writeNegotiated(w http.ResponseWriter, r *http.Request, data interface{}) {
	if !wantsMsgpack(r) {
		writeJSON(w, data)
		return
	}

	body, err := msgpack.Marshal(data)
	if err != nil {
		log.Printf("❌ msgpack encode failed: %v", err)
		writeError(w, "Encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// encodeFrames marshals one envelope in both wire formats
func encodeFrames(event string, data interface{}) (text, binary []byte, err error) {
	msg := wsMessage{Event: event, Data: data}
	if text, err = json.Marshal(msg); err != nil {
		return nil, nil, err
	}
	if binary, err = msgpack.Marshal(&msg); err != nil {
		return nil, nil, err
	}
	return text, binary, nil
}

// decodeCommand parses a client frame in whichever format it arrived
func decodeCommand(payload []byte, binary bool) (wsCommand, error) {
	var cmd wsCommand
	var err error
	if binary {
		err = msgpack.Unmarshal(payload, &cmd)
	} else {
		err = json.Unmarshal(payload, &cmd)
	}
	return cmd, err
}
