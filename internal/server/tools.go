// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"street-food-scanner/internal/imagedata"
	"street-food-scanner/internal/scanner"
)

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type IdentifyFoodParams struct {
	ImageBase64 string `json:"image_base64" description:"Base64-encoded JPEG or PNG image, or a data URL"`
	MimeType    string `json:"mime_type,omitempty" description:"image/jpeg or image/png (defaults to image/jpeg)"`
	Language    string `json:"language,omitempty" description:"Language hint, defaults to en"`
}

type ListScansParams struct {
	Outcome string `json:"outcome,omitempty" description:"Filter by outcome: SUCCESS, NOT_FOOD or API_ERROR"`
	Limit   int    `json:"limit,omitempty" description:"Maximum number of scans to return"`
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var toolDescriptions = map[string]string{
	"identify_food": "Identify a Vietnamese street food dish from a photo",
	"list_scans":    "List recent food scans, newest first",
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

func (s *FoodScannerServer) registerTools() error {
	s.tools = map[string]toolHandler{
		"identify_food": s.handleIdentifyFood,
		"list_scans":    s.handleListScansTool,
	}

	for name := range s.tools {
		if _, ok := toolDescriptions[name]; !ok {
			return fmt.Errorf("tool %s has no description", name)
		}
		s.logger.Debug("registered tool", map[string]interface{}{"tool": name})
	}
	return nil
}

func (s *FoodScannerServer) toolList() []toolInfo {
	out := make([]toolInfo, 0, len(s.tools))
	for name := range s.tools {
		out = append(out, toolInfo{Name: name, Description: toolDescriptions[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *FoodScannerServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"serverInfo": s.info,
			"tools":      s.toolList(),
		})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *FoodScannerServer) handleIdentifyFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params IdentifyFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	if params.ImageBase64 == "" {
		return nil, fmt.Errorf("image_base64 is required")
	}

	img, err := imagedata.FromBase64(params.ImageBase64, params.MimeType)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}

	result := s.scanner.Identify(ctx, img, scanner.Request{Language: params.Language, Source: "mcp"})
	return s.createJSONResponse(result)
}

func (s *FoodScannerServer) handleListScansTool(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListScansParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if s.storage == nil {
		return nil, fmt.Errorf("scan history is disabled")
	}

	if params.Limit <= 0 {
		params.Limit = defaultScanLimit
	}
	if params.Limit > maxScanLimit {
		params.Limit = maxScanLimit
	}

	scans, err := s.storage.GetScans(ctx, params.Outcome, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve scans: %w", err)
	}

	return s.createJSONResponse(scans)
}

func (s *FoodScannerServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
