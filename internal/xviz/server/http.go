package server

import (
	"net/http"

	"github.com/banshee-data/nuscenes-xviz/internal/httputil"
	"github.com/banshee-data/nuscenes-xviz/internal/version"
)

// ScenesResponse is the body of GET /api/scenes.
type ScenesResponse struct {
	Scenes []string `json:"scenes"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Clients    int          `json:"clients"`
	FramesSent uint64       `json:"frames_sent"`
	Build      version.Info `json:"build"`
}

// AttachRoutes adds the JSON status endpoints to mux.
func (s *Server) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/scenes", httputil.GetOnly(s.handleScenes))
	mux.HandleFunc("/api/status", httputil.GetOnly(s.handleStatus))
}

func (s *Server) handleScenes(w http.ResponseWriter, _ *http.Request) {
	scenes := s.source.Scenes()
	if scenes == nil {
		scenes = []string{}
	}
	httputil.WriteJSONOK(w, ScenesResponse{Scenes: scenes})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	clients, frames := s.Stats()
	httputil.WriteJSONOK(w, StatusResponse{Clients: clients, FramesSent: frames, Build: version.Get()})
}
