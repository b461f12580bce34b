package shipping

import (
	"net/http"

	"github.com/decantory/backend-decantory/internal/common"
)

// ListMethods returns the offered shipping options.
func ListMethods(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Methods()})
}
