package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/generate"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/testutil"
)

type stubProposer struct{}

func (stubProposer) Propose(_ context.Context, req generate.Request) generate.Result {
	return generate.Result{Engine: "stub", Candidates: []models.CardFields{
		{Type: models.NoteBasic, Front: "Q: " + req.Text, Back: "A", Tags: []string{}},
	}}
}

type idNotifier struct{}

func (idNotifier) Deliver(_ context.Context, _ int64, p models.Proposal, _ string) (int64, error) {
	return p.ID, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	_, files := testutil.TestSources(t)
	logger := testutil.Logger()

	return New(Options{
		Notes:         noteservice.NewService(db, files, nil, noteservice.Options{Logger: logger}),
		Proposals:     proposal.NewService(db, stubProposer{}, idNotifier{}, proposal.Config{MaxNotes: 3}, logger),
		DefaultUserID: 7,
		Logger:        logger,
	})
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "propose_text":
		result, err = srv.proposeText(ctx, req)
	case "list_proposals":
		result, err = srv.listProposals(ctx, req)
	case "decide_proposal":
		result, err = srv.decideProposal(ctx, req)
	case "submit_feedback":
		result, err = srv.submitFeedback(ctx, req)
	case "sync_mochi":
		result, err = srv.syncMochi(ctx, req)
	case "list_sources":
		result, err = srv.listSources(ctx, req)
	case "import_source":
		result, err = srv.importSource(ctx, req)
	case "get_card_format":
		result, err = srv.getCardFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func propose(t *testing.T, srv *Server, text string) proposal.Outcome {
	t.Helper()
	r := callTool(t, srv, "propose_text", map[string]interface{}{"text": text})
	if r.IsError {
		t.Fatalf("propose_text: %s", resultText(r))
	}
	var out proposal.Outcome
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if len(out.ProposalIDs) != 1 {
		t.Fatalf("proposal ids = %v", out.ProposalIDs)
	}
	return out
}

func TestProposeAndListProposals(t *testing.T) {
	srv := testServer(t)
	out := propose(t, srv, "Warsaw is the capital of Poland.")

	r := callTool(t, srv, "list_proposals", map[string]interface{}{"status": "pending"})
	var items []models.Proposal
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != out.ProposalIDs[0] || items[0].UserID != 7 {
		t.Errorf("proposals = %+v", items)
	}

	// Another user sees nothing.
	r = callTool(t, srv, "list_proposals", map[string]interface{}{"user_id": 8})
	if text := resultText(r); strings.TrimSpace(text) != "[]" {
		t.Errorf("user 8 proposals = %s", text)
	}
}

func TestProposeTextMissingText(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "propose_text", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without text")
	}
}

func TestDecideProposal(t *testing.T) {
	srv := testServer(t)
	out := propose(t, srv, "Some fact")

	r := callTool(t, srv, "decide_proposal", map[string]interface{}{"handle": float64(out.ProposalIDs[0]), "decision": "approve"})
	if r.IsError {
		t.Fatalf("decide: %s", resultText(r))
	}
	var res decideResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Applied || res.Note == nil || res.Decision != proposal.DecisionApprove {
		t.Errorf("result = %+v", res)
	}

	r = callTool(t, srv, "decide_proposal", map[string]interface{}{"handle": float64(out.ProposalIDs[0]), "decision": "reject"})
	if !r.IsError {
		t.Error("deciding an approved proposal again should fail")
	}
	r = callTool(t, srv, "decide_proposal", map[string]interface{}{"handle": 1, "decision": "maybe"})
	if !r.IsError {
		t.Error("unknown decision should fail")
	}
}

func TestSubmitFeedback(t *testing.T) {
	srv := testServer(t)
	out := propose(t, srv, "Rivers of Europe")

	r := callTool(t, srv, "submit_feedback", map[string]interface{}{"handle": float64(out.ProposalIDs[0]), "text": "[lang:pl] shorter"})
	if r.IsError {
		t.Fatalf("feedback: %s", resultText(r))
	}
	var rev proposal.Outcome
	if err := json.Unmarshal([]byte(resultText(r)), &rev); err != nil {
		t.Fatal(err)
	}
	if rev.Lang != "pl" || rev.FeedbackID == 0 || len(rev.ProposalIDs) != 1 {
		t.Errorf("revision = %+v", rev)
	}

	r = callTool(t, srv, "submit_feedback", map[string]interface{}{"handle": 999, "text": "x"})
	if !r.IsError {
		t.Error("feedback on unknown handle should fail")
	}
}

func TestSyncMochiNotConfigured(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "sync_mochi", map[string]interface{}{"action": "push"})
	if !r.IsError || !strings.Contains(resultText(r), "not configured") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestImportSourceDataURI(t *testing.T) {
	srv := testServer(t)
	uri := "data:text/markdown;base64," + base64.StdEncoding.EncodeToString([]byte("# Rivers\nThe **Nile** is long."))

	r := callTool(t, srv, "import_source", map[string]interface{}{"url": uri, "filename": "rivers.md"})
	if r.IsError {
		t.Fatalf("import: %s", resultText(r))
	}
	var src models.Source
	if err := json.Unmarshal([]byte(resultText(r)), &src); err != nil {
		t.Fatal(err)
	}
	if src.Text != "Rivers\nThe Nile is long." || src.Status != models.SourcePending {
		t.Errorf("source = %+v", src)
	}

	r = callTool(t, srv, "list_sources", map[string]interface{}{"status": "pending"})
	var items []models.Source
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != src.ID {
		t.Errorf("sources = %+v", items)
	}
}

func TestImportSourceRejected(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "import_source", map[string]interface{}{"url": "http://127.0.0.1/notes.md"})
	if !r.IsError || !strings.Contains(resultText(r), "loopback") {
		t.Errorf("loopback = %q", resultText(r))
	}
	r = callTool(t, srv, "import_source", map[string]interface{}{"url": "ftp://example.com/a.md"})
	if !r.IsError {
		t.Error("ftp should be rejected")
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG"))
	r = callTool(t, srv, "import_source", map[string]interface{}{"url": uri, "filename": "x.png"})
	if !r.IsError {
		t.Error("png should be rejected")
	}
}

func TestCardFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_card_format", nil)
	if !strings.Contains(resultText(r), "# Ansuz Card Format") {
		t.Errorf("card format = %q", resultText(r))
	}
}
