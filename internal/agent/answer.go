package agent

import (
	"encoding/json"
	"log"
	"regexp"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceSpanRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseAnswer decodes the model's final reply. Models sometimes wrap
// the JSON in a fenced code block or surround it with prose, so the
// first top-level object span is extracted before decoding. Undecodable
// output degrades to a plain-text answer with retry/terminate options
// instead of failing the turn.
func parseAnswer(content string) answer {
	if content == "" {
		return answer{MessageText: "好的，请继续。", UIHint: UIHintNone}
	}

	candidate := content
	if m := fencedBlockRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	if m := braceSpanRe.FindString(candidate); m != "" {
		candidate = m
	}

	var parsed answer
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		log.Printf("agent: unparseable model answer, degrading to plain text: %v", err)
		return answer{
			MessageText:  content,
			QuickReplies: []string{"重试", "终止"},
			UIHint:       UIHintNone,
		}
	}

	if parsed.MessageText == "" {
		parsed.MessageText = content
	}
	if parsed.UIHint == "" {
		parsed.UIHint = UIHintNone
	}
	return parsed
}
