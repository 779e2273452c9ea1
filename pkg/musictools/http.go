package musictools

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPPath is where the streamable HTTP endpoint is mounted.
const MCPPath = "/mcp"

// NewRouter serves the MCP endpoint and a health check.
func NewRouter(server *sdk.Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "server": ServerName})
	}).Methods(http.MethodGet)
	handler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)
	r.PathPrefix(MCPPath).Handler(handler)
	return r
}
