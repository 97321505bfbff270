package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Kubolab-io/takkapp-v1-sub000/controllers"
)

const matchPrefix = "/api/matching"

// RegisterMatchRoutes sets up the weekly matching routes under /api/matching.
// Routes hang off r directly: a mux subrouter reports a method mismatch as 404
// once a sibling route's prefix matcher runs.
func RegisterMatchRoutes(r *mux.Router, controller *controllers.MatchController) {
	handle := func(path string, h http.HandlerFunc, method string) {
		r.Handle(matchPrefix+path, gzhttp.GzipHandler(h)).Methods(method)
	}

	handle("/epoch", controller.GetEpoch, http.MethodGet)
	handle("/generate", controller.Generate, http.MethodPost)
	handle("/entries", controller.GetEntries, http.MethodGet)
	handle("/accept", controller.Accept, http.MethodPost)
	handle("/reject", controller.Reject, http.MethodPost)
	handle("/reconcile", controller.Reconcile, http.MethodPost)
	handle("/pairs/{matchId}", controller.GetPair, http.MethodGet)
	handle("/pairs/{matchId}/chat", controller.GetChatChannel, http.MethodGet)
}
