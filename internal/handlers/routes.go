package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	rel := RelationshipHandler{Relationships: deps.Relationships, Limiter: deps.Limiter}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/relationships", rel.View)
	mux.HandleFunc("/api/v1/users/{id}", rel.Profile)
	mux.HandleFunc("/api/v1/relationships/follow", rel.Follow)
	mux.HandleFunc("/api/v1/relationships/unfollow", rel.Unfollow)
	mux.HandleFunc("/api/v1/connections/request", rel.Request)
	mux.HandleFunc("/api/v1/connections/accept", rel.Accept)
	mux.HandleFunc("/api/v1/connections/reject", rel.Reject)
	mux.HandleFunc("/api/v1/connections/cancel", rel.Cancel)
	mux.HandleFunc("/api/v1/connections/remove", rel.Remove)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Relationships RelationshipService
	Limiter       RateLimiter
	Database      Pinger
}
