package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/pathforge/internal/models"
	"github.com/example/pathforge/internal/orchestrator"
	"github.com/example/pathforge/internal/registry"
	"github.com/example/pathforge/internal/tasks"
)

// Server exposes the pipeline over HTTP. All responses are JSON except the
// per-task event stream.
type Server struct {
	Orch     *orchestrator.Orchestrator
	Tasks    *tasks.Manager
	Registry *registry.Store
}

func New(orch *orchestrator.Orchestrator, mgr *tasks.Manager, reg *registry.Store) *Server {
	return &Server{Orch: orch, Tasks: mgr, Registry: reg}
}

// submission is the shared request body for the three pipeline entry points.
type submission struct {
	Description string       `json:"description,omitempty"`
	Source      string       `json:"source,omitempty"`
	Grid        models.Grid  `json:"grid,omitempty"`
	Start       models.Point `json:"start"`
	End         models.Point `json:"end"`
}

func (s submission) scenario() orchestrator.Scenario {
	return orchestrator.Scenario{Grid: s.Grid, Start: s.Start, End: s.End}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/generate", s.submitHandler(func(req submission) (string, error) {
		if strings.TrimSpace(req.Description) == "" {
			return "", errors.New("description is required")
		}
		return s.Orch.SubmitGenerate(req.Description, req.scenario()), nil
	}))

	mux.HandleFunc("/fix", s.submitHandler(func(req submission) (string, error) {
		if strings.TrimSpace(req.Source) == "" {
			return "", errors.New("source is required")
		}
		return s.Orch.SubmitFix(req.Source, req.scenario()), nil
	}))

	mux.HandleFunc("/generate_and_fix", s.submitHandler(func(req submission) (string, error) {
		if strings.TrimSpace(req.Description) == "" {
			return "", errors.New("description is required")
		}
		return s.Orch.SubmitGenerateAndFix(req.Description, req.scenario()), nil
	}))

	mux.HandleFunc("/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSON(w, s.Orch.ValidateSource(req.Source))
	})

	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		respondJSON(w, s.Tasks.List())
	})

	mux.HandleFunc("/tasks/pause/", s.lifecycleHandler("/tasks/pause/", s.Tasks.Pause))
	mux.HandleFunc("/tasks/resume/", s.lifecycleHandler("/tasks/resume/", s.Tasks.Resume))
	mux.HandleFunc("/tasks/cancel/", s.lifecycleHandler("/tasks/cancel/", s.Tasks.Cancel))
	mux.HandleFunc("/tasks/remove/", s.lifecycleHandler("/tasks/remove/", s.Tasks.Remove))

	mux.HandleFunc("/tasks/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		olderThan := time.Duration(0)
		if v := r.URL.Query().Get("older_than"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				http.Error(w, "bad older_than: "+err.Error(), http.StatusBadRequest)
				return
			}
			olderThan = d
		}
		respondJSON(w, map[string]int{"removed": s.Tasks.ClearCompleted(olderThan)})
	})

	mux.HandleFunc("/tasks/events/", func(w http.ResponseWriter, r *http.Request) {
		// path: /tasks/events/{id}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Path[len("/tasks/events/"):]
		if _, err := s.Tasks.Get(id); err != nil {
			s.respondError(w, err)
			return
		}
		s.streamEvents(w, r, id)
	})

	mux.HandleFunc("/tasks/", func(w http.ResponseWriter, r *http.Request) {
		// path: /tasks/{id}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Path[len("/tasks/"):]
		task, err := s.Tasks.Get(id)
		if err != nil {
			s.respondError(w, err)
			return
		}
		respondJSON(w, task)
	})

	mux.HandleFunc("/algorithms", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list, err := s.Registry.List()
			if err != nil {
				s.respondError(w, err)
				return
			}
			respondJSON(w, list)
		case http.MethodPost:
			s.saveAlgorithm(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/algorithms/execute/", func(w http.ResponseWriter, r *http.Request) {
		// path: /algorithms/execute/{name}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Path[len("/algorithms/execute/"):]
		var req submission
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := s.Orch.ExecuteRegistered(r.Context(), name, req.scenario())
		if err != nil {
			s.respondError(w, err)
			return
		}
		respondJSON(w, res)
	})

	mux.HandleFunc("/algorithms/", func(w http.ResponseWriter, r *http.Request) {
		// path: /algorithms/{name}
		name := r.URL.Path[len("/algorithms/"):]
		switch r.Method {
		case http.MethodGet:
			algo, err := s.Registry.Get(name)
			if err != nil {
				s.respondError(w, err)
				return
			}
			respondJSON(w, algo)
		case http.MethodDelete:
			if err := s.Registry.Delete(name); err != nil {
				s.respondError(w, err)
				return
			}
			respondJSON(w, map[string]string{"deleted": name})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) submitHandler(submit func(submission) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req submission
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := submit(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"task_id": id})
	}
}

func (s *Server) lifecycleHandler(prefix string, op func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Path[len(prefix):]
		if err := op(id); err != nil {
			s.respondError(w, err)
			return
		}
		task, err := s.Tasks.Get(id)
		if err != nil {
			// removed tasks have no snapshot to return
			respondJSON(w, map[string]string{"task_id": id})
			return
		}
		respondJSON(w, task)
	}
}

func (s *Server) saveAlgorithm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Source      string `json:"source"`
		OldName     string `json:"old_name,omitempty"`
		Override    bool   `json:"override,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Source) == "" {
		http.Error(w, "name and source are required", http.StatusBadRequest)
		return
	}
	validated := s.Orch.ValidateSource(req.Source).IsValid
	algo := models.CustomAlgorithm{Name: req.Name, Description: req.Description, Source: req.Source}
	saved, err := s.Registry.Save(algo, req.OldName, validated, req.Override)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, saved)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, unsub := s.Orch.Subscribe(id)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case b, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrNameConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNotValidated):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTimeout), errors.Is(err, models.ErrStepLimit):
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
