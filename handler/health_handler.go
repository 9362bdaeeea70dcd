package handler

import (
	"net/http"

	"task-manager-api/common"
)

// HealthCheck godoc
// @Summary      Show the status of server
// @Description  Liveness probe; does not touch the database.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "task-manager-api"})
}
