package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMalformed is returned by Decode for payloads that are not valid JSON,
// carry an unknown type, or miss a required field. Such messages are dropped.
// Optional fields of the wrong JSON type are ignored instead.
var ErrMalformed = errors.New("malformed message")

// NoTaskID stands in for a cancel_task id that is a number but not a whole
// one. No task ever has it, so the cancel is answered not_found.
const NoTaskID int64 = -1

// fields is the loose view of an inbound message. Values keep their JSON
// type (string, float64, bool, ...) so each message picks what it can use.
type fields struct {
	Identity   any `json:"identity"`
	Text       any `json:"text"`
	Minutes    any `json:"minutes"`
	Pattern    any `json:"pattern"`
	ID         any `json:"id"`
	SinceMs    any `json:"sinceMs"`
	JPEG       any `json:"jpeg"`
	Hash       any `json:"hash"`
	IngestOnly any `json:"ingestOnly"`
}

// Decode parses one inbound control message.
func Decode(data []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch head.Type {
	case TypeClientOnline:
		return ClientOnline{Identity: optString(f.Identity)}, nil
	case TypePing:
		return Ping{}, nil
	case TypeIntentExplainError:
		return IntentExplainError{}, nil
	case TypeIntentCompareScreens:
		return IntentCompareScreens{}, nil
	case TypeIntentSummarizeSession:
		return IntentSummarizeSession{}, nil
	case TypeUserQuery:
		text := optString(f.Text)
		if text == "" {
			return nil, missing(TypeUserQuery, "text")
		}
		return UserQuery{Text: text}, nil
	case TypeStartTaskTrackError:
		return StartTaskTrackError{Minutes: optNumber(f.Minutes), Pattern: optString(f.Pattern)}, nil
	case TypeCancelTask:
		id := optNumber(f.ID)
		if id == nil {
			return nil, missing(TypeCancelTask, "numeric id")
		}
		return CancelTask{ID: taskID(*id)}, nil
	case TypeDescribeScene:
		return DescribeScene{}, nil
	case TypeWhatChanged:
		return WhatChanged{SinceMs: optNumber(f.SinceMs)}, nil
	case TypeSnapshotThumbnail:
		jpeg := optString(f.JPEG)
		if jpeg == "" {
			return nil, missing(TypeSnapshotThumbnail, "jpeg")
		}
		ingestOnly, _ := f.IngestOnly.(bool)
		return SnapshotThumbnail{JPEG: jpeg, Hash: optString(f.Hash), IngestOnly: ingestOnly}, nil
	case TypeSnapshotHires:
		jpeg := optString(f.JPEG)
		if jpeg == "" {
			return nil, missing(TypeSnapshotHires, "jpeg")
		}
		return SnapshotHires{JPEG: jpeg}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, head.Type)
	}
}

func missing(msgType, field string) error {
	return fmt.Errorf("%w: %s: %s is required", ErrMalformed, msgType, field)
}

func optString(v any) string {
	s, _ := v.(string)
	return s
}

func optNumber(v any) *float64 {
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func taskID(n float64) int64 {
	if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
		return NoTaskID
	}
	return int64(n)
}

// Encode renders an outbound message as a JSON object with its "type" first.
func Encode(msg Outbound) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.WriteString(strconv.Quote(msg.MessageType()))
	if inner := bytes.TrimSpace(body); len(inner) > 2 {
		buf.WriteByte(',')
		buf.Write(inner[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
