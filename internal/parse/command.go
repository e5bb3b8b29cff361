package parse

import "jizhang/internal/core"

// Command is the closed set of intents the classifier can produce. The
// router switches over every variant; adding a variant without handling it
// there is a compile-visible omission, not a silent dictionary miss.
type Command interface {
	isCommand()
}

// NoOpCommand means "stay silent": a group-channel message that did not
// address the bot. No reply is sent, not even an error.
type NoOpCommand struct{}

// ExpenseCommand records an expense of Amount with the residual text as
// the reason.
type ExpenseCommand struct {
	Amount core.Money
	Reason string
}

// DeleteCommand deletes the caller's record with the given id.
type DeleteCommand struct {
	RecordID int64
}

// LimitNote marks how a requested query limit was adjusted, if at all.
type LimitNote int

const (
	LimitOK      LimitNote = iota
	LimitTooHigh           // requested above the maximum, clamped to 50
	LimitTooLow            // requested below 1, reset to the default of 5
)

// QueryCommand lists the caller's most recent records.
type QueryCommand struct {
	Limit int
	Note  LimitNote
}

// HelpVariant selects one of the three help replies.
type HelpVariant int

const (
	HelpMain  HelpVariant = iota // 幫助, 說明, help, ?, 指令, 功能, menu
	HelpUsage                    // 記帳, 格式
	HelpWelcome                  // 歡迎, 你好, hello, hi, welcome
)

// HelpCommand shows one of the help/menu/welcome texts.
type HelpCommand struct {
	Variant HelpVariant
}

// StatOp is a built-in statistics operation keyword.
type StatOp int

const (
	StatMonthly StatOp = iota
	StatAllTime
	StatCurrent
	StatResetConfirm
	StatResetExecute
	StatResetCancel
)

// StatCommand runs a built-in statistics operation. Only recognized in
// private channels.
type StatCommand struct {
	Op StatOp
}

// UnrecognizedCommand carries the original text so the reply can quote it
// back with a format suggestion.
type UnrecognizedCommand struct {
	Text string
}

func (NoOpCommand) isCommand()         {}
func (ExpenseCommand) isCommand()      {}
func (DeleteCommand) isCommand()       {}
func (QueryCommand) isCommand()        {}
func (HelpCommand) isCommand()         {}
func (StatCommand) isCommand()         {}
func (UnrecognizedCommand) isCommand() {}
