// Package transcript provides types and a tolerant reader for Claude Code session transcripts.
package transcript

import "encoding/json"

// Kind classifies a record by its top-level "type" field.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	// KindOther covers summaries, system entries, snapshots and anything else
	// the host writes. Such records are kept in log order but never formatted.
	KindOther Kind = "other"
)

// BlockType is the "type" value of a content block.
type BlockType string

const (
	BlockTypeText       BlockType = "text"
	BlockTypeToolUse    BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
	BlockTypeThinking   BlockType = "thinking"
)

// Record is one line of the transcript.
type Record struct {
	Kind      Kind
	Type      string // raw "type" value, useful when Kind is KindOther
	UUID      string
	SessionID string
	Timestamp string // kept verbatim; it is echoed into formatted turns
	Message   Message
}

// Conversational reports whether the record is a user or assistant turn.
func (r Record) Conversational() bool {
	return r.Kind == KindUser || r.Kind == KindAssistant
}

// Message is the payload of a user or assistant record. Content is either a
// plain string (Plain is true and Text holds it) or an ordered list of blocks.
type Message struct {
	Role   string
	Plain  bool
	Text   string
	Blocks []Block
}

// Block is a content block inside a message.
//
//sumtype:decl
type Block interface {
	Type() BlockType
	sealed()
}

// TextBlock is free text written by the user or the assistant.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a tool invocation requested by the assistant.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input []Field // parameters in the order they appear in the log
}

// Field is one tool input parameter. Value holds the raw JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// ToolResultBlock carries the output of an earlier tool invocation.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ThinkingBlock is assistant reasoning. It is never persisted.
type ThinkingBlock struct {
	Thinking string
}

// UnknownBlock preserves block types this package does not model.
type UnknownBlock struct {
	Kind string
	Raw  json.RawMessage
}

func (TextBlock) Type() BlockType       { return BlockTypeText }
func (ToolUseBlock) Type() BlockType    { return BlockTypeToolUse }
func (ToolResultBlock) Type() BlockType { return BlockTypeToolResult }
func (ThinkingBlock) Type() BlockType   { return BlockTypeThinking }
func (b UnknownBlock) Type() BlockType  { return BlockType(b.Kind) }

func (TextBlock) sealed()       {}
func (ToolUseBlock) sealed()    {}
func (ToolResultBlock) sealed() {}
func (ThinkingBlock) sealed()   {}
func (UnknownBlock) sealed()    {}
