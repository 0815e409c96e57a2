// AI HTTP handlers.
//
// This file exposes the diagnostics endpoint for the remote AI integration:
//   - GET /ai/test-connection  (probe the configured remote AI service)
//
// The probe uses the server-side AI configuration; no credentials are ever
// accepted from or echoed to the client.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TestConnectionResponse reports the outcome of a remote AI reachability
// probe.
type TestConnectionResponse struct {
	Connected bool   `json:"connected"`
	Provider  string `json:"provider,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// TestAIConnection probes the configured remote AI service and reports
// whether it is reachable with the server's credentials. When remote AI is
// disabled or no key is configured, the endpoint reports not connected
// without attempting a probe.
func (h *Handlers) TestAIConnection(c *gin.Context) {
	if h.aiSvc == nil || !h.aiCfg.UseRemoteAI || h.aiCfg.APIKey == "" {
		ok(c, http.StatusOK, TestConnectionResponse{
			Connected: false,
			Provider:  string(h.aiCfg.Provider),
			Detail:    "remote AI disabled or no API key configured",
		})
		return
	}

	if err := h.aiSvc.TestConnection(c.Request.Context(), h.aiCfg.APIKey, h.aiCfg.Provider); err != nil {
		ok(c, http.StatusOK, TestConnectionResponse{
			Connected: false,
			Provider:  string(h.aiCfg.Provider),
			Detail:    err.Error(),
		})
		return
	}

	ok(c, http.StatusOK, TestConnectionResponse{
		Connected: true,
		Provider:  string(h.aiCfg.Provider),
	})
}
