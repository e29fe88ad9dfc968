package panelread

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/panelread/readout"
)

var testImpl = &mcp.Implementation{Name: "panelread-test", Version: "0.1.0"}

// mcpSession registers the Reader's tools and returns a connected client.
func mcpSession(t *testing.T, r *Reader) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	r.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool invokes a tool and returns its text content and tool error.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, error) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text, result.GetError()
}

func TestMCP_ReadAndSessions(t *testing.T) {
	r, _ := testReader(t, accountsPort())
	session := mcpSession(t, r)

	text, err := callTool(t, session, "panelread_read", map[string]any{"panel": "accounts"})
	if err != nil {
		t.Fatalf("panelread_read: %v", err)
	}
	res, err := readout.UnmarshalResult([]byte(text))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(res.Records) != 2 || res.Header[0] != "name" {
		t.Errorf("result: %+v", res)
	}

	text, err = callTool(t, session, "panelread_sessions", map[string]any{"panel": "accounts"})
	if err != nil {
		t.Fatalf("panelread_sessions: %v", err)
	}
	var list []struct {
		ID       string `json:"id"`
		RowCount int    `json:"row_count"`
	}
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		t.Fatalf("unmarshal sessions: %v", err)
	}
	if len(list) != 1 || list[0].ID != res.ID || list[0].RowCount != 2 {
		t.Errorf("sessions: %+v", list)
	}

	text, err = callTool(t, session, "panelread_session", map[string]any{"id": res.ID})
	if err != nil {
		t.Fatalf("panelread_session: %v", err)
	}
	var detail struct {
		ID      string     `json:"id"`
		Records [][]string `json:"records"`
	}
	if err := json.Unmarshal([]byte(text), &detail); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if detail.ID != res.ID || len(detail.Records) != 2 {
		t.Errorf("session: %+v", detail)
	}
}

func TestMCP_Panels(t *testing.T) {
	r, _ := testReader(t, accountsPort())
	session := mcpSession(t, r)

	text, err := callTool(t, session, "panelread_panels", map[string]any{})
	if err != nil {
		t.Fatalf("panelread_panels: %v", err)
	}
	var panels []PanelInfo
	if err := json.Unmarshal([]byte(text), &panels); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(panels) != 2 || panels[0].Name != "accounts" || panels[1].Kind != "editor" {
		t.Errorf("panels: %+v", panels)
	}
}

func TestMCP_Errors(t *testing.T) {
	r, _ := testReader(t, accountsPort())
	session := mcpSession(t, r)

	if _, err := callTool(t, session, "panelread_read", map[string]any{"panel": "nope"}); err == nil ||
		!strings.Contains(err.Error(), "unknown panel") {
		t.Errorf("unknown panel: got %v", err)
	}
	if _, err := callTool(t, session, "panelread_session", map[string]any{"id": "rd_missing"}); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Errorf("missing session: got %v", err)
	}
}
