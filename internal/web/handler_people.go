package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type createPersonRequest struct {
	Name string `json:"name"`
	// Age stays untyped so both 30 and "30" reach the service.
	Age any `json:"age"`
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req createPersonRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := s.people.Add(r.Context(), req.Name, req.Age); err != nil {
		s.writeServiceError(w, r, "add person", err)
		return
	}
	s.metrics.PeopleCreated.Inc()
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.people.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleSearchPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.people.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "search people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}
