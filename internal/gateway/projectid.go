package gateway

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/snorlak1/mem0-server-mcp/internal/config"
)

// ProjectHeader is a header name for the caller's project
// path/directory identifier. The gateway does not read it: tool
// handlers take the path from the project_path argument (see
// Deps.projectID), and an absent path falls back to the authenticated
// user_id.
const ProjectHeader = "X-MCP-Project-Path"

// EffectiveProjectID derives the owner scope a tool call operates
// under, per spec.md §4.1 step 2. Under auto mode, projectPath is the
// caller-supplied directory identifier (empty falls back to userID);
// under manual/global mode the configured fixed value wins regardless
// of what the caller sent.
func EffectiveProjectID(mode config.ProjectIDMode, projectPath, userID, manualID, globalID string) string {
	switch mode {
	case config.ProjectIDManual:
		return manualID
	case config.ProjectIDGlobal:
		return globalID
	default: // config.ProjectIDAuto
		seed := projectPath
		if seed == "" {
			seed = userID
		}
		sum := sha256.Sum256([]byte(seed))
		return "prj_" + hex.EncodeToString(sum[:])[:8]
	}
}
