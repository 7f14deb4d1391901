package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/utils"
)

// sendMessage handles POST /threads/{threadID}/messages: appends the user
// message, places an assistant placeholder and enqueues generation. The
// response acknowledges both messages and the job id; the generated text
// arrives via the push channel.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := a.Ctrl.Send(threadID, body.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusAccepted, res)
}

// listMessages handles GET /threads/{threadID}/messages.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	th, err := a.Store.Get(threadID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		ThreadID string           `json:"thread_id"`
		Messages []models.Message `json:"messages"`
	}{ThreadID: threadID, Messages: th.Messages})
}

// retryMessage handles POST /threads/{threadID}/messages/{id}/retry. Only
// assistant messages currently in error are retryable; anything else is a
// 400 with no side effects.
func (a *API) retryMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, err := a.Ctrl.Retry(vars["threadID"], vars["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// jobStatus handles GET /jobs/{id}, exposing queue bookkeeping for
// diagnostics.
func (a *API) jobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"job_id":  id,
		"queued":  a.Queue.IsQueued(id),
		"running": a.Queue.IsRunning(id),
	})
}
