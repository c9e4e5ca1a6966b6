package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"zutopia/internal/audio"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "No snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	writeNegotiated(w, r, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	limits := make(map[RouteClass]map[string]uint64, len(h.limiters))
	for _, l := range h.limiters {
		limits[l.Class()] = l.GetStats()
	}
	writeJSON(w, map[string]interface{}{
		"engine":    h.engine.Stats(),
		"rateLimit": limits,
	})
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GameConfig())
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "Frame rendering is disabled", http.StatusNotFound)
		return
	}
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "No snapshot published yet", http.StatusServiceUnavailable)
		return
	}

	// Encode fully before writing so failures can still become a 500
	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, snap); err != nil {
		log.Printf("❌ Frame render failed: %v", err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleGetSound(w http.ResponseWriter, r *http.Request) {
	if h.sounds == nil {
		writeError(w, "Sound cues are disabled", http.StatusNotFound)
		return
	}
	cue, ok := audio.ParseCue(chi.URLParam(r, "cue"))
	if !ok {
		writeError(w, "Unknown cue", http.StatusNotFound)
		return
	}

	data, err := h.sounds.WAV(cue)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (h *routerHandlers) handleGameStart(w http.ResponseWriter, r *http.Request) {
	started := h.engine.RequestStart()
	if started {
		log.Println("▶️ Session start requested via API")
	}
	writeJSON(w, map[string]bool{"success": started})
}

func (h *routerHandlers) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, "x and y are required", http.StatusBadRequest)
		return
	}

	// Pointer input outside ACTIVE is ignored, not an error
	moved := h.engine.PointerMoved(*req.X, *req.Y)
	writeJSON(w, map[string]bool{"success": moved})
}
