package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adntgv/gptree/pkg/lifecycle"
	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/queue"
	"github.com/adntgv/gptree/pkg/store"
	"github.com/adntgv/gptree/pkg/tree"
	"github.com/adntgv/gptree/pkg/utils"
)

// API bundles the injected components the HTTP handlers dispatch into.
type API struct {
	Store *store.Store
	Tree  *tree.Manager
	Ctrl  *lifecycle.Controller
	Queue *queue.Queue
}

func New(st *store.Store, tm *tree.Manager, ctrl *lifecycle.Controller, q *queue.Queue) *API {
	return &API{Store: st, Tree: tm, Ctrl: ctrl, Queue: q}
}

// Register wires all routes onto the provided router.
func (a *API) Register(r *mux.Router) {
	// Collection routes
	r.HandleFunc("/threads", a.createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads", a.listThreads).Methods(http.MethodGet)

	// Single resource routes
	r.HandleFunc("/threads/{id}", a.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/branch", a.branchThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/fork", a.forkThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/summarize", a.summarizeThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/retitle", a.retitleThread).Methods(http.MethodPost)

	// Thread-scoped messages
	r.HandleFunc("/threads/{threadID}/messages", a.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{threadID}/messages", a.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/threads/{threadID}/messages/{id}/retry", a.retryMessage).Methods(http.MethodPost)

	// Job diagnostics
	r.HandleFunc("/jobs/{id}", a.jobStatus).Methods(http.MethodGet)
}

// writeErr maps domain errors onto HTTP statuses: validation errors are
// 400, unknown ids are 404, everything else is a 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case models.IsValidation(err):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
