package instance

import (
	"os"

	"github.com/bairdservice/baird-backend/pkg/env"
)

const EnvWorkerID = "BAIRD_WORKER_ID"

// GetID identifies this process in logs and lock diagnostics.
func GetID() string {
	if id := env.Get("", EnvWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
