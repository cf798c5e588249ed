package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/client"
	"github.com/Sternrassler/rnm-query/pkg/query"
	"github.com/Sternrassler/rnm-query/pkg/trigger"
)

// queryView is what a list UI consumes.
type queryView struct {
	Data         []character.Character `json:"data"`
	Status       query.Status          `json:"status"`
	IsLoading    bool                  `json:"isLoading"`
	IsError      bool                  `json:"isError"`
	ErrorMessage string                `json:"errorMessage"`
	HasNextPage  bool                  `json:"hasNextPage"`
	Pages        int                   `json:"pages"`
}

func newQueryView(snap query.Snapshot[character.Character]) queryView {
	return queryView{
		Data:         snap.Data,
		Status:       snap.Status,
		IsLoading:    snap.IsLoading(),
		IsError:      snap.IsError(),
		ErrorMessage: snap.ErrorMessage,
		HasNextPage:  snap.HasNextPage,
		Pages:        snap.Pages,
	}
}

type nextResponse struct {
	Started bool      `json:"started"`
	Query   queryView `json:"query"`
}

type scrollResponse struct {
	Outcome string    `json:"outcome"`
	Query   queryView `json:"query"`
}

type importResponse struct {
	Character character.Character `json:"character"`
	Query     queryView           `json:"query"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getCharacters returns the current state. The first request of a session
// starts loading page 1, like a list that fetches on mount.
func (s *Server) getCharacters(w http.ResponseWriter, r *http.Request) {
	if s.characters.Snapshot().Status == query.StatusIdle {
		s.characters.TryFetchNext(s.ctx)
	}
	writeJSON(w, http.StatusOK, newQueryView(s.characters.Snapshot()))
}

// postNext requests the next page. With ?wait=true the response is sent
// after the fetch completes.
func (s *Server) postNext(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	var started bool
	if wait {
		_, started = s.characters.FetchNext(s.ctx)
	} else {
		started = s.characters.TryFetchNext(s.ctx)
	}

	status := http.StatusOK
	if started && !wait {
		status = http.StatusAccepted
	}
	writeJSON(w, status, nextResponse{Started: started, Query: newQueryView(s.characters.Snapshot())})
}

func (s *Server) postScroll(w http.ResponseWriter, r *http.Request) {
	var pos trigger.Position
	if err := s.decodeBody(w, r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if pos.ViewportHeight < 0 || pos.ScrollTop < 0 || pos.DocumentHeight < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "positions must not be negative")
		return
	}

	outcome := s.watcher.Handle(s.ctx, pos)
	writeJSON(w, http.StatusOK, scrollResponse{Outcome: outcome, Query: newQueryView(s.characters.Snapshot())})
}

func (s *Server) getScrollStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.watcher.Stats())
}

// postCharacter appends a caller-supplied record without contacting the API.
func (s *Server) postCharacter(w http.ResponseWriter, r *http.Request) {
	var c character.Character
	if err := s.decodeBody(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if c.ID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if c.Status == "" {
		c.Status = character.StatusUnknown
	}

	s.characters.AppendLocal(c)
	writeJSON(w, http.StatusCreated, newQueryView(s.characters.Snapshot()))
}

// postImport fetches one character from the API and appends it locally.
func (s *Server) postImport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "characterID"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "character id must be a positive integer")
		return
	}

	m := query.NewMutation(func(ctx context.Context) (character.Character, error) {
		return s.source.GetCharacter(ctx, id)
	}, s.characters.AppendLocal)

	c, err := m.Mutate(r.Context())
	if err != nil {
		status, code := statusForError(err)
		s.logger.Warn().Err(err).Int("character_id", id).Msg("Import failed")
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, importResponse{Character: c, Query: newQueryView(s.characters.Snapshot())})
}

// streamCharacters sends every state change as a server-sent event.
func (s *Server) streamCharacters(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := s.characters.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(newQueryView(snap))
			if err != nil {
				s.logger.Error().Err(err).Msg("Encode snapshot")
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("body read error or too large")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// statusForError maps client errors to a response status and code.
func statusForError(err error) (int, string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass == client.ErrorClassClient {
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, "not_found"
		}
		return http.StatusBadRequest, "invalid_request"
	}
	return http.StatusBadGateway, "upstream_error"
}
