package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/agent"
	"github.com/doubletabai/tabsql/pkg/training"
)

type QuestionRequest struct {
	Question string `json:"question"`
}

type GenerateSQLResponse struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

type TrainRequest struct {
	Kind     string `json:"kind"`
	Question string `json:"question,omitempty"`
	Content  string `json:"content"`
}

func handleAsk(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuestionRequest
		if !decode(w, r, &req) {
			return
		}
		ans, err := a.Ask(r.Context(), req.Question)
		if err != nil {
			log.Warn().Str("question", req.Question).Err(err).Msg("Failed to answer question")
			resp := errorResponse{Error: err.Error()}
			if ans != nil {
				resp.SQL = ans.SQL
			}
			writeJSON(w, statusFor(err), resp)
			return
		}
		writeJSON(w, http.StatusOK, ans)
	}
}

func handleGenerateSQL(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuestionRequest
		if !decode(w, r, &req) {
			return
		}
		sql, _, err := a.GenerateSQL(r.Context(), req.Question)
		if err != nil {
			httpError(w, statusFor(err), "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, GenerateSQLResponse{Question: req.Question, SQL: sql})
	}
}

func handleTrain(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrainRequest
		if !decode(w, r, &req) {
			return
		}
		kind, err := training.ParseKind(req.Kind)
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}

		var item training.Item
		if kind == training.KindSQL {
			item, err = a.TrainSQL(r.Context(), req.Question, req.Content, training.SourceAPI)
		} else {
			item, err = a.Train(r.Context(), kind, "", req.Content, training.SourceAPI)
		}
		if err != nil {
			httpError(w, statusFor(err), "%v", err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func handleListTrainingData(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := a.TrainingData(r.Context())
		if err != nil {
			httpError(w, statusFor(err), "%v", err)
			return
		}
		if kind := r.URL.Query().Get("kind"); kind != "" {
			k, err := training.ParseKind(kind)
			if err != nil {
				httpError(w, http.StatusBadRequest, "%v", err)
				return
			}
			filtered := make([]training.Item, 0, len(items))
			for _, it := range items {
				if it.Kind == k {
					filtered = append(filtered, it)
				}
			}
			items = filtered
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleRemoveTrainingData(a *agent.Agent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := a.RemoveTrainingData(r.Context(), id); err != nil {
			httpError(w, statusFor(err), "%v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
