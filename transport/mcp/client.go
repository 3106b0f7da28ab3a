package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer

	// session tokens handed out by the API, keyed by lower-case session ID
	mu     sync.RWMutex
	tokens map[string]string
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: make(map[string]string),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Merge Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(`Merge Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide numbered tiles on a square board. Equal tiles that collide merge into
their sum. Reach the config's win tile (2048 on the classic board) and keep
going for a higher score.

AVAILABLE TOOLS:
- create_session: Create a new game session (optional config_id and seed)
- list_sessions / get_session: Inspect sessions
- game_state: Board, score and status of a session
- move: Slide once (up/down/left/right) - requires intent explanation
- bulk_move: Up to 50 slides, stops at the first slide that changes nothing
- reset_game: Start a new game in the same session
- keep_playing: Continue after a win on configs that pause on victory
- move_history: Paginated past moves
- list_configs: Available boards
- leaderboard: Best finished games
- game_instructions: Full rules and strategy notes

NOTE: The 'intent' parameter on move/bulk_move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

var directionEnum = []string{"up", "down", "left", "right"}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session. Pass a seed to get a reproducible game.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config identifier from list_configs (optional)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Random seed for tile spawns (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide every tile in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directionEnum,
					"description": "Direction to slide",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Start a new game before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d slides in sequence; stops at the first slide that changes nothing or ends the game", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": directionEnum,
					},
					"description": "Array of directions",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Start a new game before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new game in the session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "keep_playing",
		Description: "Continue after reaching the win tile on a config that pauses on victory",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleKeepPlaying)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProp(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest or newest first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Best finished games, optionally for one config",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config": map[string]interface{}{
					"type":        "string",
					"description": "Config name to filter by (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries (default 10)",
				},
			},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) rememberToken(sessionID, token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	c.tokens[strings.ToLower(sessionID)] = token
	c.mu.Unlock()
}

func (c *Client) tokenFor(sessionID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[strings.ToLower(sessionID)]
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.sessionCall(ctx, "", method, path, body, result)
}

// sessionCall is apiCall with the bearer token of sessionID attached, if known
func (c *Client) sessionCall(ctx context.Context, sessionID, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(sessionID); sessionID != "" && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if seed, ok := args["seed"].(float64); ok && seed != 0 {
		body["seed"] = int64(seed)
	}

	var created struct {
		service.SessionInfo
		Token string `json:"token"`
	}
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c.rememberToken(created.ID, created.Token)

	log.Debug().Str("session", created.ID).Msg("mcp session created")
	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", created.ID, created.ConfigName, formatGameState(created.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score, highest := 0, 0
		if s.GameState != nil {
			score, highest = s.GameState.Score, s.GameState.HighestTile
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Best tile: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, highest, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)
	// intent is only there to make the caller think; nothing reads it

	body := map[string]interface{}{
		"direction": direction,
		"reset":     reset,
	}

	var result service.MoveResult
	if err := c.sessionCall(ctx, sessionID, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)

	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": reset,
	}

	var result service.BulkMoveResult
	if err := c.sessionCall(ctx, sessionID, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.sessionCall(ctx, sessionID, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleKeepPlaying(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.sessionCall(ctx, sessionID, "POST", sessionPath(sessionID, "/continue"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(response.State)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)

	// Also show the current game's segment from live state
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err == nil {
		result += "\n" + formatCurrentSegment(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Win tile: %d",
			config.Name, config.ConfigID, config.Description, config.GridSize, config.GridSize, config.WinThreshold)
		if config.StopOnWin {
			b.WriteString(", pauses on win")
		}
		b.WriteString("\n\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if config, _ := args["config"].(string); config != "" {
		params.Set("config", config)
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	path := "/api/leaderboard"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response struct {
		Config  string                     `json:"config"`
		Entries []service.LeaderboardEntry `json:"entries"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLeaderboard(response.Config, response.Entries)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Merge Game - Complete Instructions

GAME OBJECTIVE:
Combine equal tiles until one of them reaches the config's win tile
(2048 on the classic 4x4 board). You may keep playing afterwards for score.

MECHANICS:
• A move slides every tile as far as it goes in one direction (up, down, left, right).
• Two equal tiles that collide merge into one tile of double value.
• A tile merges at most once per move. In a line of three equal tiles the two
  nearest the wall merge first; [2,2,2] slid left becomes [4,2].
• Score increases by the value of every merged tile.
• After every move that changed the board one new tile spawns on a random
  empty cell: usually a 2, sometimes a 4.
• A move that changes nothing spawns nothing and costs nothing, but bulk_move
  stops there.

GAME OVER:
The board is full and no two neighbouring tiles are equal.

VICTORY:
The first time any tile reaches the win threshold. Configs with stop_on_win
pause until you call keep_playing (or reset_game).

READING THE BOARD:
Rows are printed top to bottom, "." is an empty cell. Tile changes are listed
after each move: moved, merged, absorbed (the tile that disappeared into a
merge) and spawned.

STRATEGY NOTES:
• Keep your highest tile in a corner and build a descending chain along one edge.
• Prefer two directions (e.g. left and down) and use a third only when stuck.
• Avoid the direction that pulls the big tile out of its corner.
• Use bulk_move for runs of safe moves; it reports where and why it stopped.

SESSIONS:
• Each session has its own board, score and history.
• create_session accepts a seed for reproducible spawns.
• Finished games are recorded on the leaderboard with their reward tier.`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	status := ""
	if session.AwaitingContinue {
		status = "\nWon - call keep_playing to continue"
	}
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s%s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		status,
		formatGameState(session.GameState))
}

// formatBoard renders the grid as a fixed-width table, one row per line
func formatBoard(grid *engine.Grid) string {
	if grid == nil {
		return ""
	}
	values := grid.Values()

	width := 1
	for _, row := range values {
		for _, v := range row {
			if n := len(fmt.Sprint(v)); n > width {
				width = n
			}
		}
	}

	sep := "+" + strings.Repeat(strings.Repeat("-", width+2)+"+", len(values)) + "\n"
	var b strings.Builder
	b.WriteString(sep)
	for _, row := range values {
		b.WriteString("|")
		for _, v := range row {
			cell := "."
			if v != 0 {
				cell = fmt.Sprint(v)
			}
			fmt.Fprintf(&b, " %*s |", width, cell)
		}
		b.WriteString("\n")
		b.WriteString(sep)
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Highest: %d | Turns: %d | Moves: %d\n\n",
		state.Score, state.HighestTile, state.Turns, state.TotalMoves)

	b.WriteString(formatBoard(state.Grid))

	switch {
	case state.IsOver:
		b.WriteString("\nGAME OVER")
		if state.HasWon {
			b.WriteString(" (won)")
		}
	case state.HasWon && !state.KeepPlaying:
		b.WriteString("\nVICTORY!")
	case state.HasWon:
		b.WriteString("\nWon, still playing")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatChanges(changes []engine.TileChange) string {
	if len(changes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Changes:\n")
	for _, ch := range changes {
		switch ch.Kind {
		case engine.ChangeSpawned:
			fmt.Fprintf(&b, "- spawned %d at (%d,%d)\n", ch.Value, ch.To.Row, ch.To.Col)
		case engine.ChangeAbsorbed:
			fmt.Fprintf(&b, "- absorbed %d from (%d,%d)\n", ch.Value, ch.From.Row, ch.From.Col)
		default:
			fmt.Fprintf(&b, "- %s %d (%d,%d)→(%d,%d)\n", ch.Kind, ch.Value, ch.From.Row, ch.From.Col, ch.To.Row, ch.To.Col)
		}
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Board changed\n")
	} else {
		b.WriteString("✗ Nothing moved\n")
	}

	if s := result.Step; s != nil {
		fmt.Fprintf(&b, "Step: %s score+%d merges=%d", s.Dir, s.ScoreDelta, s.Merges)
		if s.Spawned != nil {
			fmt.Fprintf(&b, " spawned=%d@(%d,%d)", s.Spawned.Value, s.Spawned.Row, s.Spawned.Col)
		}
		b.WriteString("\n")
	}
	if result.Reward != nil {
		fmt.Fprintf(&b, "Reward tier: %s\n", result.Reward.Name)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString(formatChanges(result.Changes))
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s\n", sessionID, configName)
	fmt.Fprintf(&b, "Executed %d/%d moves, score %d → %d (+%d)\n",
		result.MovesExecuted, result.RequestedMoves, result.StartScore, result.EndScore, result.ScoreDelta)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s\n", result.StoppedOnMove, result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.PossibleMoves) > 0 {
		dirs := make([]string, 0, len(result.PossibleMoves))
		for _, d := range result.PossibleMoves {
			dirs = append(dirs, d.String())
		}
		fmt.Fprintf(&b, "\nPossible moves: %s\n", strings.Join(dirs, ","))
	}
	if result.Reward != nil {
		fmt.Fprintf(&b, "Reward tier: %s\n", result.Reward.Name)
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

// formatStepLine renders a single compact step line
func formatStepLine(s service.StepInfo) string {
	status := "✗"
	if s.Success {
		status = "✓"
	}
	line := fmt.Sprintf("%d. %s +%d merges=%d score=%d best=%d %s",
		s.Idx, s.Dir, s.ScoreDelta, s.Merges, s.ScoreAfter, s.HighestAfter, status)
	if s.Won {
		line += " WIN"
	}
	if s.Over {
		line += " OVER"
	}
	return line + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves)\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "#%d %s %s +%d score=%d best=%d\n",
			move.MoveNumber, move.Action, status, move.ScoreDelta, move.Score, move.HighestTile)
	}

	if history.HasNext {
		b.WriteString("\n(More moves available on next page)")
	}
	return b.String()
}

// formatCurrentSegment summarises the moves of the game in progress
func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return ""
	}
	total := len(state.CurrentMoves)
	if total == 0 {
		return "Current game: no moves yet"
	}

	const tail = 10
	start := 0
	if total > tail {
		start = total - tail
	}
	parts := make([]string, 0, total-start)
	for _, m := range state.CurrentMoves[start:] {
		p := m.Action
		if !m.Success {
			p += "✗"
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("Current game: %d moves, last %d: %s", total, len(parts), strings.Join(parts, " "))
}

func formatLeaderboard(config string, entries []service.LeaderboardEntry) string {
	var b strings.Builder
	title := "all configs"
	if config != "" {
		title = config
	}
	fmt.Fprintf(&b, "Leaderboard (%s):\n\n", title)
	if len(entries) == 0 {
		b.WriteString("No finished games yet")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%2d. %s  score=%d  best=%d", e.Rank, e.SessionID, e.Score, e.HighestTile)
		if e.Tier != "" {
			fmt.Fprintf(&b, "  tier=%s", e.Tier)
		}
		fmt.Fprintf(&b, "  (%s)\n", e.ConfigName)
	}
	return b.String()
}
