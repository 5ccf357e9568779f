package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatd/pkg/api/handlers"
	"chatd/pkg/auth"
	"chatd/pkg/service"
)

// Deps carries the wired components the API surface needs.
type Deps struct {
	Svc *service.Service
	// WS handles GET /v1/ws websocket attaches.
	WS http.Handler
}

// Router builds the /v1 REST router. Every route runs behind the signed-user
// middleware; the API-key gateway wraps the whole server one level up.
func Router(d Deps) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.RequireSignedUser)

	handlers.RegisterMessages(v1, d.Svc)
	handlers.RegisterConversations(v1, d.Svc)
	handlers.RegisterUsers(v1)
	if d.WS != nil {
		v1.Handle("/ws", d.WS).Methods(http.MethodGet)
	}
	return r
}
