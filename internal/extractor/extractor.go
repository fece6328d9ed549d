// Package extractor turns raw conversation text into atomic, durable
// memory operations by way of a single LLM call.
//
// Where the upstream fact-extraction pipeline this is grounded on runs
// two LLM calls (extract facts, then decide ADD/UPDATE/DELETE/NONE
// against a supplied list of existing memories), this package folds
// both steps into one prompt: the model emits {content, action} pairs
// directly, with action restricted to ADD/UPDATE/NONE. Matching an
// UPDATE against a specific existing memory by similarity is the
// caller's job (it owns the vector store), not the extractor's.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
)

// Action is the extractor's verdict for one extracted memory.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionUpdate Action = "UPDATE"
	ActionNone   Action = "NONE"
)

// Op is one atomic memory operation emitted by the extractor.
type Op struct {
	Content string
	Action  Action
}

// Extractor calls an LLM to turn conversation messages into a list of
// atomic memory operations.
type Extractor struct {
	llm          llm.Provider
	customPrompt string
}

// New creates an Extractor using the default prompt.
func New(provider llm.Provider) *Extractor {
	return &Extractor{llm: provider}
}

// NewWithPrompt creates an Extractor using a caller-supplied system
// prompt. The custom prompt is responsible for instructing the model
// to return the same {"memories": [...]} JSON shape parseResponse
// expects.
func NewWithPrompt(provider llm.Provider, customPrompt string) *Extractor {
	return &Extractor{llm: provider, customPrompt: customPrompt}
}

// Extract runs the extraction algorithm's step 1: call the LLM with
// the raw submitted messages and return the {content, action} items
// it emits. Zero items is a valid, non-error result.
func (e *Extractor) Extract(ctx context.Context, messages []llm.Message) ([]Op, error) {
	const op = "extractor.Extract"

	conversation := formatConversation(messages)
	llmMessages := []llm.Message{
		{Role: "system", Content: e.systemPrompt()},
		{Role: "user", Content: fmt.Sprintf("Input:\n%s", conversation)},
	}

	response, err := e.llm.GenerateWithMessages(ctx, llmMessages)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	ops, err := parseResponse(response)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}
	return ops, nil
}

// formatConversation renders messages as "role: content" lines,
// dropping any system messages and skipping blank roles or content.
func formatConversation(messages []llm.Message) string {
	var parts []string
	for _, m := range messages {
		if m.Role == "" || m.Content == "" || m.Role == "system" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n")
}

func (e *Extractor) systemPrompt() string {
	if e.customPrompt != "" {
		return e.customPrompt
	}

	today := time.Now().Format("2006-01-02")
	return fmt.Sprintf(`You are a Personal Information Organizer. Read the conversation below and decide what should be remembered about the user, as a list of atomic, self-contained, first-person memory statements, each paired with an action.

Information worth remembering: personal preferences, details (names, relationships, dates), plans, intentions, needs, requests, activities, health/wellness, professional facts.

CRITICAL Rules:
1. TEMPORAL: ALWAYS extract time info (dates, relative refs like "yesterday", "last week"). Include it in the statement itself (e.g. "Went to Hawaii in May 2023", not just "Went to Hawaii").
2. COMPLETE: Each statement is self-contained with who/what/when/where when available.
3. SEPARATE: Extract distinct facts as separate statements, especially across different time periods.
4. INTENTIONS & NEEDS: ALWAYS extract user intentions, needs, and requests even without time information.
5. ACTION: Mark a statement ADD when it is new information. Mark it UPDATE when it corrects, supersedes, or extends something said earlier in the same conversation. Mark it NONE for statements not worth storing (greetings, small talk, already-restated information) — when a statement is NONE, still return it so the caller knows it was considered and skipped.

Examples:
Input: Hi.
Output: {"memories": []}

Input: Yesterday, I met John at 3pm. We discussed the project.
Output: {"memories": [{"content": "Met John at 3pm yesterday", "action": "ADD"}, {"content": "Discussed project with John yesterday", "action": "ADD"}]}

Input: I said I prefer class components, but actually I've switched to hooks now.
Output: {"memories": [{"content": "Prefers React hooks over class components", "action": "UPDATE"}]}

Input: I'm John, a software engineer. Thanks for the help earlier.
Output: {"memories": [{"content": "Name is John", "action": "ADD"}, {"content": "John is a software engineer", "action": "ADD"}, {"content": "Thanks for the help earlier", "action": "NONE"}]}

Rules:
- Today: %s
- Return JSON: {"memories": [{"content": "...", "action": "ADD"|"UPDATE"|"NONE"}]}
- Consider user and assistant messages only
- Preserve the input language
- If nothing is worth remembering, return {"memories": []}

Extract memories from the conversation below:`, today)
}

// parseResponse parses the LLM's JSON reply into a list of Ops,
// tolerating a fenced code block around the JSON body.
func parseResponse(response string) ([]Op, error) {
	response = removeCodeBlocks(response)

	var result struct {
		Memories []struct {
			Content string `json:"content"`
			Action  string `json:"action"`
		} `json:"memories"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	ops := make([]Op, 0, len(result.Memories))
	for _, m := range result.Memories {
		if m.Content == "" {
			continue
		}
		action := Action(strings.ToUpper(m.Action))
		switch action {
		case ActionAdd, ActionUpdate, ActionNone:
		default:
			action = ActionNone
		}
		ops = append(ops, Op{Content: m.Content, Action: action})
	}
	return ops, nil
}

func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}
