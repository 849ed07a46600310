package tasks

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"receipt-e2e/types"
)

// NewHandler exposes the registry as the task bridge:
//
//	GET  /health
//	GET  /tasks
//	POST /task/{name}   body: types.TaskRequest
func NewHandler(reg *Registry) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"tasks": reg.Names()})
	})

	mux.HandleFunc("POST /task/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		var req types.TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, types.TaskResponse{Task: name, Error: "invalid request body"})
			return
		}

		value, err := reg.Invoke(r.Context(), name, req.Arg)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrTaskNotFound) {
				status = http.StatusNotFound
			}
			zap.L().Warn("task call failed",
				zap.String("task", name),
				zap.String("request_id", req.ID),
				zap.Int("status", status),
				zap.Error(err))
			writeJSON(w, status, types.TaskResponse{ID: req.ID, Task: name, Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, types.TaskResponse{ID: req.ID, Task: name, Value: value})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
