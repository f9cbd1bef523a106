package handlers

import (
	"net/http"
	"strings"

	"github.com/pingup/backend/internal/middleware"
)

func actorFromRequest(r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(middleware.ActorHeader))
	return actor, actor != ""
}
