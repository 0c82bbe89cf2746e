package reviewer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sentineltrace/guardctl/internal/domain/review"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestReviewForcesSubmitDecisionTool(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{
			Type:  "tool_use",
			Name:  submitDecisionTool,
			ID:    "tool-1",
			Input: json.RawMessage(`{"approved":true,"reason":"routine read"}`),
		}},
	}}
	r := &AITLReviewer{client: stub, model: "claude-sonnet-4-5", spotlighting: true}

	result := r.Review(context.Background(), review.ReviewRequest{
		ToolName:  "read_file",
		Arguments: `{"path":"/etc/hosts"}`,
	})

	if !result.Approved || result.Reason != "routine read" {
		t.Errorf("unexpected result: %+v", result)
	}
	if stub.lastParams.ToolChoice.OfTool == nil || stub.lastParams.ToolChoice.OfTool.Name != submitDecisionTool {
		t.Error("expected ToolChoice to force submit_decision")
	}
	if len(stub.lastParams.Tools) != 1 {
		t.Fatalf("expected exactly one tool offered, got %d", len(stub.lastParams.Tools))
	}
}

func TestReviewDeniesOnSDKError(t *testing.T) {
	stub := &stubMessagesClient{err: errors.New("connection refused")}
	r := &AITLReviewer{client: stub, model: "claude-sonnet-4-5"}

	result := r.Review(context.Background(), review.ReviewRequest{ToolName: "run_shell"})

	if result.Approved {
		t.Error("expected a fail-closed deny when the AITL backend is unreachable")
	}
	if result.Reason == "" {
		t.Error("expected a non-empty reason explaining the failure")
	}
}

func TestReviewDeniesOnMalformedDecision(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{
			Type:  "tool_use",
			Name:  submitDecisionTool,
			ID:    "tool-1",
			Input: json.RawMessage(`not json`),
		}},
	}}
	r := &AITLReviewer{client: stub, model: "claude-sonnet-4-5"}

	result := r.Review(context.Background(), review.ReviewRequest{ToolName: "run_shell"})

	if result.Approved {
		t.Error("expected a fail-closed deny on a malformed decision payload")
	}
}

func TestReviewDeniesWhenNoDecisionBlockPresent(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "I refuse to decide."}},
	}}
	r := &AITLReviewer{client: stub, model: "claude-sonnet-4-5"}

	result := r.Review(context.Background(), review.ReviewRequest{ToolName: "run_shell"})

	if result.Approved {
		t.Error("expected a fail-closed deny when the model never calls submit_decision")
	}
}

func TestReviewSendsSingleUserMessageWhenContextPresent(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{
			Type:  "tool_use",
			Name:  submitDecisionTool,
			Input: json.RawMessage(`{"approved":false,"reason":"suspicious"}`),
		}},
	}}
	r := &AITLReviewer{client: stub, model: "claude-sonnet-4-5"}

	r.Review(context.Background(), review.ReviewRequest{
		ToolName:  "run_shell",
		Arguments: `{"cmd":"ls"}`,
		Context:   "user asked to list files",
	})

	if len(stub.lastParams.Messages) != 1 {
		t.Fatalf("expected a single user message, got %d", len(stub.lastParams.Messages))
	}
}
