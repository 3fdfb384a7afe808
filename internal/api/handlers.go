// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/events"
	"github.com/ManuGH/placecore/internal/session"
)

var errUnavailable = errors.New("service not configured")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}
	s.deps.Health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
		return
	}
	s.deps.Health.ServeReady(w, r)
}

type sessionResponse struct {
	session.State
	Phase          session.Phase `json:"phase"`
	ExpiredByTime  bool          `json:"expiredByTime"`
	UsageRemaining int           `json:"usageRemaining"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Session == nil {
		writeNotFound(w)
		return
	}
	st, err := s.deps.Session.State(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	maxUsage := s.deps.Session.Config().MaxUsage
	writeJSON(w, http.StatusOK, sessionResponse{
		State:          st,
		Phase:          st.Phase(),
		ExpiredByTime:  s.deps.Session.Expired(st),
		UsageRemaining: max(0, maxUsage-st.UsageCount),
	})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if s.deps.Session == nil {
		writeNotFound(w)
		return
	}
	if err := s.deps.Session.Clear(r.Context(), session.ReasonExplicit); err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTriggered(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeNotFound(w)
		return
	}
	list, err := s.deps.Events.TriggeredEvents(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	if list == nil {
		list = []events.TriggeredEvent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUntriggered(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeNotFound(w)
		return
	}
	list, err := s.deps.Events.UntriggeredEvents(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	if list == nil {
		list = []events.UntriggeredEvent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleEventsFlush(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeNotFound(w)
		return
	}
	if err := s.deps.Events.Flush(r.Context()); err != nil {
		if errors.Is(err, events.ErrClosed) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeServiceUnavailable(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fonts == nil {
		writeNotFound(w)
		return
	}
	idx, err := s.deps.Fonts.Index(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleCache(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Cache == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Config == nil {
		writeError(w, http.StatusNotFound, errUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, config.MaskSecrets(s.deps.Config()))
}
