// Package mcpserver registers MCP tools that expose now-playing lookups.
// It adapts the nowplaying package to the MCP SDK's tool handler interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"github.com/alexjbarnes/npbtn/internal/models"
	"github.com/alexjbarnes/npbtn/internal/nowplaying"
	"github.com/alexjbarnes/npbtn/internal/share"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolNowPlaying is the name of the now-playing tool.
const ToolNowPlaying = "now_playing"

// RegisterTools adds all tools to the given MCP server.
func RegisterTools(server *mcp.Server, svc *nowplaying.Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolNowPlaying,
		Description: "Report the track the user is currently playing on Spotify. Takes the opaque token issued after authorizing at /spotify/auth. Returns playing=false when nothing, or a non-track item, is playing.",
	}, nowPlayingHandler(svc, logger))
}

// NowPlayingInput holds parameters for now_playing.
type NowPlayingInput struct {
	Token string `json:"token" jsonschema:"required,opaque token issued by the authorization callback"`
}

// NowPlayingOutput is the result of now_playing.
type NowPlayingOutput struct {
	Playing   bool               `json:"playing"`
	Track     *models.NowPlaying `json:"track,omitempty"`
	ShareText string             `json:"share_text,omitempty"`
	ShareURL  string             `json:"share_url,omitempty"`
}

func nowPlayingHandler(svc *nowplaying.Service, logger *slog.Logger) mcp.ToolHandlerFor[NowPlayingInput, *NowPlayingOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input NowPlayingInput) (*mcp.CallToolResult, *NowPlayingOutput, error) {
		np, err := svc.Query(ctx, input.Token)
		if err != nil {
			logger.Debug("now_playing tool failed", slog.String("error", err.Error()))
			return nil, nil, publicError(err)
		}

		out := &NowPlayingOutput{}
		if np != nil {
			out.Playing = true
			out.Track = np
			out.ShareText = share.Text(np)
			out.ShareURL = share.IntentURL(np)
		}

		return textResult(out), out, nil
	}
}

// publicErrors are the error kinds whose messages are safe to show a
// tool caller.
var publicErrors = []error{
	apperrors.ErrInvalidRequest,
	apperrors.ErrTokenDecode,
	apperrors.ErrTokenExpired,
	apperrors.ErrProviderRequest,
}

// publicError strips provider detail from err, keeping only its kind.
func publicError(err error) error {
	for _, kind := range publicErrors {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return errors.New("internal error")
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
