package handlers

import (
	"errors"
	"net/http"

	"chatd/pkg/logger"
	"chatd/pkg/service"
	"chatd/pkg/utils"
)

// writeServiceError maps service sentinels onto HTTP statuses. Anything not
// in the taxonomy is a persistence or programming failure and becomes a 500
// with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRecipient),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrNotEditable):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConversationNotFound):
		utils.JSONError(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, service.ErrMessageNotFound):
		utils.JSONError(w, http.StatusNotFound, "Message not found")
	case errors.Is(err, service.ErrNoChange):
		utils.JSONError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("handler_internal_error", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}
