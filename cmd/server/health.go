package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	platformredis "biohive/internal/platform/redis"
	"biohive/internal/transport/http/shared"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthHandler reports liveness plus dependency connectivity. A degraded
// dependency turns the response 503 but the process keeps serving.
func healthHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				resp.Checks["postgres"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["postgres"] = "ok"
			}
		} else {
			resp.Checks["store"] = "in-memory"
		}

		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				resp.Checks["redis"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		shared.WriteJSON(w, status, resp)
	}
}
