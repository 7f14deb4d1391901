package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/utils"
)

// createThread handles POST /threads to create a new root thread. The body
// carries a title and optional seed messages; without seeds the thread
// opens with a system message.
func (a *API) createThread(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string           `json:"title"`
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	th, err := a.Tree.CreateRoot(body.Title, body.Messages)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, struct {
		Thread *models.Thread `json:"thread"`
	}{Thread: th})
}

// listThreads handles GET /threads. A newly-connecting subscriber uses
// this to pull full state before applying push events.
func (a *API) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := a.Store.List()
	if err != nil {
		writeErr(w, err)
		return
	}
	if threads == nil {
		threads = []*models.Thread{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Threads []*models.Thread `json:"threads"`
	}{Threads: threads})
}

// getThread handles GET /threads/{id}. Returns 404 for unknown ids.
func (a *API) getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	th, err := a.Store.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, th)
}

// branchThread handles POST /threads/{id}/branch: a new thread seeded with
// a full copy of the source's messages.
func (a *API) branchThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Title string `json:"title"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	th, err := a.Tree.Branch(id, body.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, struct {
		Thread *models.Thread `json:"thread"`
	}{Thread: th})
}

// forkThread handles POST /threads/{id}/fork: a new thread seeded with the
// source's messages up to and including the chosen message.
func (a *API) forkThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		MessageID string `json:"message_id"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.MessageID == "" {
		utils.JSONError(w, http.StatusBadRequest, "message_id required")
		return
	}
	th, err := a.Tree.ForkAt(id, body.MessageID, body.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, struct {
		Thread *models.Thread `json:"thread"`
	}{Thread: th})
}

// summarizeThread handles POST /threads/{id}/summarize and returns the
// async job id.
func (a *API) summarizeThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	jobID, err := a.Ctrl.Summarize(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// retitleThread handles POST /threads/{id}/retitle and returns the async
// job id.
func (a *API) retitleThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	jobID, err := a.Ctrl.Retitle(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
