package app

import (
	"net/http"

	"github.com/lam4est/CinemaX/api"
)

func (app *application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	systemInfo := api.SystemInfo{
		Version:     version,
		Environment: app.config.Env,
	}

	if app.redis != nil {
		err := app.redis.Ping(r.Context()).Err()
		if err != nil {
			app.contextGetLogger(r).Warn("redis ping failed", "error", err)
			status = "DEGRADED"
		}
	}

	resp := api.HealthcheckResponse{
		Status:     status,
		SystemInfo: systemInfo,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
