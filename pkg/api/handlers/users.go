package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatd/pkg/models"
	"chatd/pkg/users"
	"chatd/pkg/utils"
	"chatd/pkg/validation"
)

// RegisterUsers registers the profile mirror routes. Upserts are restricted
// to backend and admin keys by the gateway scope rules; reads are open to
// any authenticated caller.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/users/{id}", upsertUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", getUser).Methods(http.MethodGet)
}

// upsertUser handles PUT /v1/users/{id}: sync of a public profile summary
// from the profile service.
func upsertUser(w http.ResponseWriter, r *http.Request) {
	role := r.Header.Get("X-Role-Name")
	if role != "backend" && role != "admin" {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	id := mux.Vars(r)["id"]
	if err := validation.UserID(id); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var u models.UserSummary
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	u.ID = id
	if err := users.Upsert(u); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.JSONWrite(w, http.StatusOK, u)
}

// getUser handles GET /v1/users/{id}.
func getUser(w http.ResponseWriter, r *http.Request) {
	u, err := users.StoreDirectory{}.Resolve(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, users.ErrUnknownUser) {
			utils.JSONError(w, http.StatusNotFound, "User not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.JSONWrite(w, http.StatusOK, u)
}
