package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/studyvault/internal/review"
)

type reviewState struct {
	SessionID string        `json:"session_id"`
	Card      int           `json:"card"`
	Total     int           `json:"total"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer,omitempty"`
	Level     review.Level  `json:"level,omitempty"`
	Counts    review.Counts `json:"counts"`
	Progress  float64       `json:"progress"`
	Ended     bool          `json:"ended"`
}

func stateOf(sess *review.Session) reviewState {
	card := sess.Current()
	st := reviewState{
		SessionID: sess.ID,
		Card:      sess.Index() + 1,
		Total:     sess.Len(),
		Question:  card.Question,
		Level:     sess.Level(sess.Index()),
		Counts:    sess.Counts(),
		Progress:  sess.Progress(),
		Ended:     sess.Ended(),
	}
	if sess.ShowingAnswer() {
		st.Answer = card.Answer
	}
	return st
}

func (s *Server) startReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("notebook")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.resolveNotebook(ctx, ref)
	if err != nil {
		return errorResult(err), nil
	}
	sess, err := s.svc.StartReview(ctx, nb)
	if err != nil {
		return errorResult(err), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.review = sess
	return jsonResult(stateOf(sess)), nil
}

func (s *Server) reviewCard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.review
	if sess == nil {
		return mcp.NewToolResultError("no review in progress; call start_review first"), nil
	}
	if sess.Ended() && action != "show" {
		return mcp.NewToolResultError("review has ended; call start_review to begin again"), nil
	}

	switch action {
	case "show":
	case "flip":
		sess.Flip()
	case "next":
		sess.Next()
	case "prev":
		sess.Prev()
	case "end":
		sess.End()
	default:
		level, err := review.ParseLevel(action)
		if err != nil {
			return errorResult(err), nil
		}
		if err := sess.Mark(level); err != nil {
			return errorResult(err), nil
		}
		if !sess.Ended() {
			sess.Next()
		}
	}
	return jsonResult(stateOf(sess)), nil
}
