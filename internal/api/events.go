package api

import (
	"net/http"
	"strconv"

	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/sse"
	"github.com/rs/zerolog"
)

// progressEvents streams upload progress of one composer as `progress` events.
func (s *Server) progressEvents(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("kind")
	var current int
	switch topic {
	case TopicTip:
		current = s.tip.Progress().Value()
	case TopicGuide:
		current = s.guide.Progress().Value()
	default:
		writeError(w, r, errors.NewInvalidRequest("kind must be tip or guide"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEventStream)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	l := zerolog.Ctx(r.Context())

	client := sse.NewClient(topic)
	s.clients.Add(client)
	defer func() {
		s.clients.Delete(client)
		l.Debug().Str("topic", topic).Msg("SSE client disconnected")
	}()
	l.Debug().Str("topic", topic).Msg("New SSE client connected")

	if err := sse.WriteEvent(w, "connected", strconv.Itoa(current)); err != nil {
		return
	}
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			if err := sse.WriteEvent(w, "progress", msg); err != nil {
				return
			}
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
