package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Log is the result of reading a transcript.
type Log struct {
	Records []Record
	Skipped int // non-blank lines that could not be decoded
}

// ReadFile reads the transcript at path. A missing file is a session with no
// activity yet and yields an empty Log rather than an error.
func ReadFile(path string) (Log, error) {
	file, err := os.Open(path) //nolint:gosec // transcript path comes from the host
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Log{}, nil
		}
		return Log{}, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close() //nolint:errcheck

	return Parse(file)
}

// Parse decodes newline-delimited records from r. Lines that fail to decode are
// skipped: the host may still be appending to the file, so the last line can be
// a partial write.
func Parse(r io.Reader) (Log, error) {
	var log Log
	reader := bufio.NewReaderSize(r, 64*1024)

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if rec, err := parseRecord(line); err == nil {
				log.Records = append(log.Records, rec)
			} else {
				log.Skipped++
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return log, nil
			}
			return log, fmt.Errorf("read transcript: %w", readErr)
		}
	}
}

type rawEntry struct {
	Type      string          `json:"type"`
	UUID      string          `json:"uuid"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type messagePayload struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

func parseRecord(raw []byte) (Record, error) {
	var entry rawEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Record{}, fmt.Errorf("unmarshal entry: %w", err)
	}

	rec := Record{
		Type:      entry.Type,
		UUID:      entry.UUID,
		SessionID: entry.SessionID,
		Timestamp: entry.Timestamp,
	}

	switch Kind(entry.Type) {
	case KindUser, KindAssistant:
		rec.Kind = Kind(entry.Type)
	default:
		rec.Kind = KindOther
		return rec, nil
	}

	if len(entry.Message) == 0 || string(entry.Message) == "null" {
		return rec, nil
	}

	// A message that is not an object leaves the record without content; it
	// still marks a position in the log.
	var msg messagePayload
	if err := json.Unmarshal(entry.Message, &msg); err != nil {
		return rec, nil
	}
	rec.Message = decodeMessage(msg)
	return rec, nil
}

func decodeMessage(msg messagePayload) Message {
	out := Message{Role: msg.Role}
	if len(msg.Content) == 0 {
		return out
	}

	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		out.Plain = true
		out.Text = asString
		return out
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return out
	}

	out.Blocks = make([]Block, 0, len(blocks))
	for _, rawBlock := range blocks {
		if block, ok := decodeBlock(rawBlock); ok {
			out.Blocks = append(out.Blocks, block)
		}
	}
	return out
}

func decodeBlock(raw json.RawMessage) (Block, bool) {
	var block contentBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, false
	}

	switch BlockType(block.Type) {
	case BlockTypeText:
		return TextBlock{Text: block.Text}, true
	case BlockTypeThinking:
		return ThinkingBlock{Thinking: block.Thinking}, true
	case BlockTypeToolUse:
		return ToolUseBlock{
			ID:    block.ID,
			Name:  block.Name,
			Input: decodeFields(block.Input),
		}, true
	case BlockTypeToolResult:
		return ToolResultBlock{
			ToolUseID: block.ToolUseID,
			Content:   resultText(block.Content),
			IsError:   block.IsError,
		}, true
	default:
		return UnknownBlock{Kind: block.Type, Raw: raw}, true
	}
}

// decodeFields returns the members of a JSON object in document order.
// Anything other than an object yields no fields.
func decodeFields(raw json.RawMessage) []Field {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fields
		}
		key, ok := keyTok.(string)
		if !ok {
			return fields
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return fields
}

// resultText flattens tool_result content, which is either a string or a list
// of typed parts of which only text parts are kept.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			if part.Type == string(BlockTypeText) && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return string(raw)
}
