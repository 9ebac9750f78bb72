package api

import (
	"encoding/json"
	"net/http"

	"github.com/reflexlab/reflex/internal/services"
)

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return services.NewInvalidError("invalid json body")
	}
	return nil
}
