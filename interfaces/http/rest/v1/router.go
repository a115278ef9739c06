package v1

import (
	"net/http"

	"flowbuilder/interfaces/http/rest/handlers"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the v1 flow editor API on r
func Routes(
	r chi.Router,
	flowHandler *handlers.FlowHandler,
	nodeHandler *handlers.NodeHandler,
	edgeHandler *handlers.EdgeHandler,
) {
	r.Use(versionHeaders)

	r.Route("/flows", func(r chi.Router) {
		r.Post("/", flowHandler.CreateFlow)
		r.Get("/", flowHandler.ListFlows)

		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", flowHandler.GetFlow)
			r.Delete("/", flowHandler.DeleteFlow)
			r.Get("/check", flowHandler.CheckFlow)
			r.Post("/load", flowHandler.LoadFlow)
			r.Post("/save", flowHandler.SaveFlow)
			r.Put("/selection", flowHandler.Select)
			r.Delete("/notice", flowHandler.DismissNotice)

			// Node endpoints
			r.Post("/nodes", nodeHandler.AddNode)
			r.Get("/nodes/{nodeID}", nodeHandler.GetNode)
			r.Put("/nodes/{nodeID}/label", nodeHandler.RelabelNode)
			r.Put("/nodes/{nodeID}/position", nodeHandler.MoveNode)
			r.Delete("/nodes/{nodeID}", nodeHandler.DeleteNode)

			// Edge endpoints
			r.Post("/edges", edgeHandler.Connect)
			r.Delete("/edges/{edgeID}", edgeHandler.RemoveEdge)
		})
	})
}

// versionHeaders adds API version headers to responses
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		next.ServeHTTP(w, r)
	})
}
