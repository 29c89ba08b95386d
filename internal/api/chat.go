package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/nlmflow/internal/rpc"
	"github.com/tmc/nlmflow/internal/studio"
)

// AskOptions narrows a question to some sources or continues a conversation.
type AskOptions struct {
	SourceIDs      []string
	ConversationID string
}

// Reference is one citation in an answer.
type Reference struct {
	CitationNumber int
	CitedText      string
	SourceID       string
}

// Answer is the reply to a question.
type Answer struct {
	Text           string
	ConversationID string
	Turn           int
	References     []Reference
}

// Ask asks a question against the notebook's sources.
//
// Reply layout: [[text, null, [conversationId, turn], null, [[n, text, [[sourceId]]], ...]]].
// Streamed replies repeat the envelope; the last one wins.
func (c *Client) Ask(ctx context.Context, notebookID, question string, opts AskOptions) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("ask: empty question")
	}
	var conversation interface{}
	if opts.ConversationID != "" {
		conversation = opts.ConversationID
	}
	resp, err := c.call(ctx, "ask", rpc.Call{
		ID:         rpc.RPCGenerateFreeFormStreamed,
		NotebookID: notebookID,
		Args: []interface{}{
			sourceRefs(opts.SourceIDs),
			question,
			nil,
			[]int{2},
			conversation,
		},
	})
	if err != nil {
		return Answer{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return Answer{}, remoteErr("ask", err)
	}

	var body []interface{}
	for _, raw := range data {
		if v, ok := raw.([]interface{}); ok && stringAt(v, 0) != "" {
			body = v
		}
	}
	if body == nil {
		c.dump("ask", data)
		return Answer{}, remoteErr("ask", fmt.Errorf("no answer in response"))
	}

	a := Answer{Text: stringAt(body, 0), ConversationID: opts.ConversationID}
	if conv := arrayAt(body, 2); conv != nil {
		if id := stringAt(conv, 0); id != "" {
			a.ConversationID = id
		}
		a.Turn, _ = intAt(conv, 1)
	}
	for _, raw := range arrayAt(body, 4) {
		ref, _ := raw.([]interface{})
		n, ok := intAt(ref, 0)
		if !ok {
			continue
		}
		a.References = append(a.References, Reference{
			CitationNumber: n,
			CitedText:      stringAt(ref, 1),
			SourceID:       firstString(at(ref, 2)),
		})
	}
	return a, nil
}

// Chat persona choices. Unknown values fall back to the default.
var (
	ChatGoal   = studio.Choice{Name: "goal", Values: []string{"default", "learning", "custom"}, Default: "default"}
	ChatLength = studio.Choice{Name: "length", Values: []string{"default", "longer", "shorter"}, Default: "default"}
)

var (
	chatGoalCodes   = map[string]int{"default": 1, "custom": 2, "learning": 3}
	chatLengthCodes = map[string]int{"default": 1, "longer": 4, "shorter": 5}
)

// ChatConfig is the chat persona of a notebook.
type ChatConfig struct {
	Goal   string
	Length string
	// Prompt is the persona text of the custom goal.
	Prompt string
}

// normalize applies defaults. A prompt without a goal selects the custom
// goal; the custom goal requires a prompt.
func (cfg ChatConfig) normalize() (ChatConfig, error) {
	cfg.Prompt = strings.TrimSpace(cfg.Prompt)
	if cfg.Goal == "" && cfg.Prompt != "" {
		cfg.Goal = "custom"
	}
	cfg.Goal = ChatGoal.Pick(cfg.Goal)
	cfg.Length = ChatLength.Pick(cfg.Length)
	switch {
	case cfg.Goal == "custom" && cfg.Prompt == "":
		return ChatConfig{}, &studio.ValidationError{Field: "prompt", Reason: "required for the custom goal"}
	case cfg.Goal != "custom":
		cfg.Prompt = ""
	}
	return cfg, nil
}

// ConfigureChat sets the chat persona of a notebook and returns the
// configuration that was applied.
//
// Settings layout: [notebookId, [[null x7, [[goalCode, prompt?], [lengthCode]]]]].
func (c *Client) ConfigureChat(ctx context.Context, notebookID string, cfg ChatConfig) (ChatConfig, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return ChatConfig{}, err
	}
	goal := []interface{}{chatGoalCodes[cfg.Goal]}
	if cfg.Prompt != "" {
		goal = append(goal, cfg.Prompt)
	}
	settings := []interface{}{goal, []interface{}{chatLengthCodes[cfg.Length]}}
	_, err = c.call(ctx, "configure chat", rpc.Call{
		ID:         rpc.RPCMutateProject,
		NotebookID: notebookID,
		Args: []interface{}{
			notebookID,
			[]interface{}{[]interface{}{nil, nil, nil, nil, nil, nil, nil, settings}},
		},
	})
	if err != nil {
		return ChatConfig{}, err
	}
	return cfg, nil
}

// ChatTurn is one message of a conversation.
type ChatTurn struct {
	// Role is "user" or "model".
	Role string
	Text string
}

// ChatHistory is the recorded conversation of a notebook.
type ChatHistory struct {
	ConversationID string
	Turns          []ChatTurn
}

const historyLimit = 100

// ChatHistory returns the latest conversation of a notebook, oldest turn
// first.
//
// Reply layout: [[[text, roleCode], ...], conversationId] with role 1 for
// the user and 2 for the model.
func (c *Client) ChatHistory(ctx context.Context, notebookID string) (ChatHistory, error) {
	resp, err := c.call(ctx, "chat history", rpc.Call{
		ID:         rpc.RPCGetConversationHistory,
		NotebookID: notebookID,
		Args:       []interface{}{[]interface{}{}, nil, notebookID, historyLimit},
	})
	if err != nil {
		return ChatHistory{}, err
	}
	data, err := decodeArray(resp)
	if err != nil {
		return ChatHistory{}, remoteErr("chat history", err)
	}
	h := ChatHistory{ConversationID: stringAt(data, 1)}
	for _, raw := range arrayAt(data, 0) {
		turn, _ := raw.([]interface{})
		text := stringAt(turn, 0)
		if text == "" {
			continue
		}
		role := "model"
		if code, _ := intAt(turn, 1); code == 1 {
			role = "user"
		}
		h.Turns = append(h.Turns, ChatTurn{Role: role, Text: text})
	}
	return h, nil
}
