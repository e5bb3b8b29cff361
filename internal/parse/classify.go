package parse

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultActivationToken addresses the bot in group channels.
	DefaultActivationToken = "@ai"

	// DefaultQueryLimit is used when a query names no row count, and is
	// also the value an under-range request falls back to.
	DefaultQueryLimit = 5

	// MaxQueryLimit caps a single listing.
	MaxQueryLimit = 50
)

var deletePattern = regexp.MustCompile(`(?i)^/del\s+#(\d+)`)

// querySynonyms may stand alone or be followed by a digit run ("查詢",
// "查詢 10", "查詢10", "list 8"). Any other tail is not a query.
var querySynonyms = []string{"查詢", "記錄", "最近", "list"}

var helpKeywords = map[string]HelpVariant{
	"幫助": HelpMain, "說明": HelpMain, "help": HelpMain, "?": HelpMain,
	"？": HelpMain, "指令": HelpMain, "功能": HelpMain, "menu": HelpMain,
	"記帳": HelpUsage, "格式": HelpUsage,
	"歡迎": HelpWelcome, "你好": HelpWelcome, "hello": HelpWelcome,
	"hi": HelpWelcome, "welcome": HelpWelcome,
}

// statKeywords are only consulted for private channels.
var statKeywords = map[string]StatOp{
	"本月": StatMonthly,
	"總計": StatAllTime, "統計": StatAllTime,
	"目前": StatCurrent, "小計": StatCurrent,
	"重置": StatResetConfirm,
	"確認重置": StatResetExecute,
	"取消重置": StatResetCancel, "取消": StatResetCancel,
}

// Classifier decides what a single message means. It is stateless per
// invocation; nothing is remembered across messages.
type Classifier struct {
	activation string
}

func NewClassifier(activationToken string) *Classifier {
	if activationToken == "" {
		activationToken = DefaultActivationToken
	}
	return &Classifier{activation: activationToken}
}

// Classify maps raw message text to a command. In group channels only
// messages beginning with the activation token get any reply; everything
// else is a NoOpCommand. In private channels the token is optional.
//
// Dispatch order is the crux: delete, then query, then help, then the
// private-channel stat keyword table, and only then the expense fallback.
// Running the expense parse earlier would misread "查詢 90" as an expense
// of 90.
func (c *Classifier) Classify(text string, isGroupChannel bool) Command {
	trimmed := strings.TrimSpace(text)
	addressed := hasFoldPrefix(trimmed, c.activation)

	if isGroupChannel && !addressed {
		return NoOpCommand{}
	}

	content := trimmed
	if addressed {
		content = strings.TrimSpace(trimmed[len(c.activation):])
	}
	if content == "" {
		return UnrecognizedCommand{Text: text}
	}

	if hasFoldPrefix(content, "/del") {
		if m := deletePattern.FindStringSubmatch(content); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
				return DeleteCommand{RecordID: id}
			}
		}
		return UnrecognizedCommand{Text: text}
	}

	if cmd, ok := c.classifyQuery(content); ok {
		return cmd
	}

	if v, ok := helpKeywords[strings.ToLower(content)]; ok {
		return HelpCommand{Variant: v}
	}

	if !isGroupChannel {
		if op, ok := statKeywords[content]; ok {
			return StatCommand{Op: op}
		}
	}

	if amount, reason, ok := ExtractAmount(content); ok && reason != "" {
		return ExpenseCommand{Amount: amount, Reason: reason}
	}
	return UnrecognizedCommand{Text: text}
}

// classifyQuery matches a query synonym followed by nothing at all or by
// an optionally whitespace-separated digit run. Any other tail is not a
// query: "記錄片票 300" and "listen ..." fall through so the expense parse
// gets its turn.
func (c *Classifier) classifyQuery(content string) (Command, bool) {
	for _, syn := range querySynonyms {
		if !hasFoldPrefix(content, syn) {
			continue
		}
		rest := strings.TrimSpace(content[len(syn):])
		if rest == "" {
			return QueryCommand{Limit: DefaultQueryLimit, Note: LimitOK}, true
		}
		if !isDigits(rest) {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		limit, note := ClampLimit(n)
		return QueryCommand{Limit: limit, Note: note}, true
	}
	return nil, false
}

// ClampLimit bounds a requested row count to [1, 50]. Values above the
// maximum clamp to 50; values below 1 fall back to the default of 5. The
// asymmetric floor is intentional: it mirrors the default, not the minimum.
func ClampLimit(n int) (int, LimitNote) {
	switch {
	case n > MaxQueryLimit:
		return MaxQueryLimit, LimitTooHigh
	case n < 1:
		return DefaultQueryLimit, LimitTooLow
	default:
		return n, LimitOK
	}
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
