package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatd/pkg/auth"
	"chatd/pkg/models"
	"chatd/pkg/service"
	"chatd/pkg/utils"
)

// RegisterConversations registers the conversation routes on the provided
// router.
func RegisterConversations(r *mux.Router, svc *service.Service) {
	h := &conversationHandlers{svc: svc}
	r.HandleFunc("/conversations", h.list).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{userID}/messages", h.messages).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", h.remove).Methods(http.MethodDelete)
}

type conversationHandlers struct {
	svc *service.Service
}

// list handles GET /v1/conversations: the caller's conversations, most
// recently updated first.
func (h *conversationHandlers) list(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	views, err := h.svc.ListConversations(caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if views == nil {
		views = []service.ConversationView{}
	}
	utils.JSONWrite(w, http.StatusOK, struct {
		Conversations []service.ConversationView `json:"conversations"`
	}{Conversations: views})
}

// messages handles GET /v1/conversations/{userID}/messages: the full history
// between the caller and the other user.
func (h *conversationHandlers) messages(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	msgs, err := h.svc.GetMessages(caller, mux.Vars(r)["userID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, struct {
		Messages []models.Message `json:"messages"`
	}{Messages: msgs})
}

// remove handles DELETE /v1/conversations/{id}.
func (h *conversationHandlers) remove(w http.ResponseWriter, r *http.Request) {
	caller, status, msg := auth.ResolveUserFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	if err := h.svc.DeleteConversation(caller, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}
