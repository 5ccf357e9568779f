package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chatd/pkg/auth"
	"chatd/pkg/models"
	"chatd/pkg/service"
	"chatd/pkg/telemetry"
	"chatd/pkg/utils"
)

// RegisterMessages registers the message routes on the provided router.
func RegisterMessages(r *mux.Router, svc *service.Service) {
	h := &messageHandlers{svc: svc}
	r.HandleFunc("/messages", h.send).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/reactions", h.toggleReaction).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/versions", h.versions).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", h.edit).Methods(http.MethodPut)
	r.HandleFunc("/messages/{id}", h.remove).Methods(http.MethodDelete)
}

type messageHandlers struct {
	svc *service.Service
}

type sendRequest struct {
	Recipient string         `json:"recipient"`
	Kind      string         `json:"kind"`
	Text      string         `json:"text,omitempty"`
	Img       string         `json:"img,omitempty"`
	Gif       *models.GifRef `json:"gif,omitempty"`
	ReplyTo   string         `json:"reply_to,omitempty"`
}

type sendResponse struct {
	Message      models.Message      `json:"message"`
	Conversation models.Conversation `json:"conversation"`
}

// send handles POST /v1/messages.
func (h *messageHandlers) send(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "send_message")
	end := telemetry.StartSpan(r.Context(), "handlers.send_message")
	defer end()

	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Kind == "" {
		req.Kind = models.KindText
	}
	m, conv, err := h.svc.SendMessage(service.SendInput{
		Sender:    caller,
		Recipient: req.Recipient,
		Kind:      req.Kind,
		Text:      req.Text,
		Img:       req.Img,
		Gif:       req.Gif,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusCreated, sendResponse{Message: m, Conversation: conv})
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// toggleReaction handles POST /v1/messages/{id}/reactions.
func (h *messageHandlers) toggleReaction(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	m, err := h.svc.ToggleReaction(caller, mux.Vars(r)["id"], req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

type editRequest struct {
	Text string `json:"text"`
}

// edit handles PUT /v1/messages/{id}.
func (h *messageHandlers) edit(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	m, err := h.svc.EditMessage(caller, mux.Vars(r)["id"], req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

// remove handles DELETE /v1/messages/{id}: a sender-only soft delete.
func (h *messageHandlers) remove(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	m, err := h.svc.DeleteMessage(caller, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

// versions handles GET /v1/messages/{id}/versions.
func (h *messageHandlers) versions(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	vs, err := h.svc.MessageVersions(caller, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if vs == nil {
		vs = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, struct {
		Versions []models.Message `json:"versions"`
	}{Versions: vs})
}
