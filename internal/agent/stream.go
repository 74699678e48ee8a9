package agent

import (
	"encoding/json"
	"strings"
)

// streamEvent is one line of `--output-format stream-json` output. Only the
// fields the dispatcher reads are decoded.
type streamEvent struct {
	Type    string `json:"type"`
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Result       string  `json:"result"`
	Cost         float64 `json:"cost_usd"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

type contentBlock struct {
	Type  string         `json:"type"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// parseStreamLine decodes one stream line. ok is false for blank or
// malformed lines, which the caller skips.
func parseStreamLine(line []byte) (streamEvent, bool) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return streamEvent{}, false
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return streamEvent{}, false
	}
	return ev, true
}

// toolUses returns the tool_use blocks of an assistant event.
func (ev streamEvent) toolUses() []contentBlock {
	if ev.Type != "assistant" || len(ev.Message.Content) == 0 {
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(ev.Message.Content, &blocks); err != nil {
		return nil
	}
	uses := blocks[:0]
	for _, b := range blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

func (ev streamEvent) cost() float64 {
	if ev.TotalCostUSD > 0 {
		return ev.TotalCostUSD
	}
	return ev.Cost
}

// describeToolUse turns a tool invocation into a short status line, or ""
// for tools that are not worth reporting.
func describeToolUse(name string, input map[string]any, repoRoot string) string {
	switch name {
	case "Read":
		short := shortPath(stringField(input, "file_path"), repoRoot)
		lower := strings.ToLower(short)
		if strings.Contains(lower, "skill") {
			return "📖 Reading skill: " + short
		}
		if strings.Contains(lower, "reference") {
			return "📖 Reading reference: " + short
		}
		return "📖 Reading " + short
	case "Write":
		return "✍️ Writing " + shortPath(stringField(input, "file_path"), repoRoot)
	case "Edit":
		return "✏️ Editing " + shortPath(stringField(input, "file_path"), repoRoot)
	case "Bash":
		cmd := strings.ToLower(stringField(input, "command"))
		switch {
		case strings.Contains(cmd, "airtable"):
			return "📤 Pushing to Airtable"
		case strings.Contains(cmd, "youtube"):
			return "🎬 Fetching YouTube transcript"
		}
		return "🔧 Running command"
	case "Glob":
		return "🔍 Searching files"
	case "Grep":
		return "🔍 Searching content"
	}
	return ""
}

func shortPath(path, repoRoot string) string {
	if repoRoot == "" {
		return path
	}
	return strings.ReplaceAll(path, strings.TrimRight(repoRoot, "/")+"/", "")
}

func stringField(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}

// claudeJSONOutput represents the JSON output from claude CLI.
// This matches the format returned by `claude --output-format json`.
type claudeJSONOutput struct {
	Type         string  `json:"type"`
	Result       string  `json:"result"`
	Cost         float64 `json:"cost_usd"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	SessionID    string  `json:"session_id"`
	IsError      bool    `json:"is_error"`
}

// parseJSONOutput extracts result text and cost from non-streaming output.
// The output may be a single JSON object or newline-delimited JSON, in which
// case the last "result" message wins.
func parseJSONOutput(data []byte) (result string, cost float64, ok bool) {
	var out claudeJSONOutput
	if err := json.Unmarshal(data, &out); err == nil {
		return out.Result, pickCost(out), true
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var out claudeJSONOutput
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			continue
		}
		if out.Type == "result" || out.Result != "" {
			return out.Result, pickCost(out), true
		}
	}
	return "", 0, false
}

func pickCost(out claudeJSONOutput) float64 {
	if out.TotalCostUSD > 0 {
		return out.TotalCostUSD
	}
	return out.Cost
}
