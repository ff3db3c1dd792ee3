package httpapi

import (
	"net/http"

	"correction_pricing/internal/logging"
	"correction_pricing/internal/utils"
)

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	if err := utils.RespondWithJSON(w, code, payload); err != nil {
		logging.Debugf("Failed to write response: %v", err)
	}
}
