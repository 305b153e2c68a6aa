// Package protocol defines the JSON control messages exchanged between room
// participants and the copilot worker. Every message is a JSON object whose
// "type" field selects the variant.
package protocol

// Inbound message types (client -> worker).
const (
	TypeClientOnline           = "client_online"
	TypePing                   = "ping"
	TypeIntentExplainError     = "intent_explain_error"
	TypeIntentCompareScreens   = "intent_compare_screens"
	TypeIntentSummarizeSession = "intent_summarize_session"
	TypeUserQuery              = "user_query"
	TypeStartTaskTrackError    = "start_task_track_error"
	TypeCancelTask             = "cancel_task"
	TypeDescribeScene          = "describe_scene"
	TypeWhatChanged            = "what_changed"
	TypeSnapshotThumbnail      = "snapshot_thumbnail"
	TypeSnapshotHires          = "snapshot_hires"
)

// Outbound message types (worker -> client).
const (
	TypeWorkerOnline          = "worker_online"
	TypeWorkerAck             = "worker_ack"
	TypePong                  = "pong"
	TypeStructuredAnswer      = "structured_answer"
	TypeTaskAck               = "task_ack"
	TypeTaskDone              = "task_done"
	TypeRequestSnapshot       = "request_snapshot"
	TypeRequestSnapshotHires  = "request_snapshot_hires"
	TypeChangeSummary         = "change_summary"
	TypeIngestError           = "ingest_error"
	TypeSceneDescription      = "scene_description"
	TypeContextUpdate         = "context_update"
	TypeSuggestedActions      = "suggested_actions"
	TypeScreenAudioTranscript = "screen_audio_transcript"
)

// Inbound is implemented by every message a worker can receive.
type Inbound interface {
	inbound()
	MessageType() string
}

// Outbound is implemented by every message a worker can emit.
type Outbound interface {
	outbound()
	MessageType() string
}

type ClientOnline struct {
	Identity string `json:"identity"`
}

type Ping struct{}

type IntentExplainError struct{}

type IntentCompareScreens struct{}

type IntentSummarizeSession struct{}

type UserQuery struct {
	Text string `json:"text"`
}

// StartTaskTrackError asks the worker to watch OCR for an error pattern.
// Minutes defaults to 5 when absent; an empty Pattern selects the built-in
// error heuristic.
type StartTaskTrackError struct {
	Minutes *float64 `json:"minutes,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

type CancelTask struct {
	ID int64 `json:"id"`
}

type DescribeScene struct{}

type WhatChanged struct {
	SinceMs *float64 `json:"sinceMs,omitempty"`
}

// SnapshotThumbnail carries a downscaled frame. IngestOnly frames feed the
// background context loop; the others are answered with a scene description.
type SnapshotThumbnail struct {
	JPEG       string `json:"jpeg"`
	Hash       string `json:"hash,omitempty"`
	IngestOnly bool   `json:"ingestOnly"`
}

type SnapshotHires struct {
	JPEG string `json:"jpeg"`
}

func (ClientOnline) inbound()           {}
func (Ping) inbound()                   {}
func (IntentExplainError) inbound()     {}
func (IntentCompareScreens) inbound()   {}
func (IntentSummarizeSession) inbound() {}
func (UserQuery) inbound()              {}
func (StartTaskTrackError) inbound()    {}
func (CancelTask) inbound()             {}
func (DescribeScene) inbound()          {}
func (WhatChanged) inbound()            {}
func (SnapshotThumbnail) inbound()      {}
func (SnapshotHires) inbound()          {}

func (ClientOnline) MessageType() string           { return TypeClientOnline }
func (Ping) MessageType() string                   { return TypePing }
func (IntentExplainError) MessageType() string     { return TypeIntentExplainError }
func (IntentCompareScreens) MessageType() string   { return TypeIntentCompareScreens }
func (IntentSummarizeSession) MessageType() string { return TypeIntentSummarizeSession }
func (UserQuery) MessageType() string              { return TypeUserQuery }
func (StartTaskTrackError) MessageType() string    { return TypeStartTaskTrackError }
func (CancelTask) MessageType() string             { return TypeCancelTask }
func (DescribeScene) MessageType() string          { return TypeDescribeScene }
func (WhatChanged) MessageType() string            { return TypeWhatChanged }
func (SnapshotThumbnail) MessageType() string      { return TypeSnapshotThumbnail }
func (SnapshotHires) MessageType() string          { return TypeSnapshotHires }

type WorkerOnline struct {
	Identity string `json:"identity"`
}

type WorkerAck struct {
	Hello bool `json:"hello"`
}

type Pong struct {
	TS int64 `json:"ts"`
}

type StructuredAnswer struct {
	Text string `json:"text"`
}

type TaskAck struct {
	ID    int64  `json:"id"`
	Kind  string `json:"kind"`
	Until int64  `json:"until"`
}

// Task resolution statuses carried by TaskDone.
const (
	TaskCancelled = "cancelled"
	TaskNotFound  = "not_found"
	TaskExpired   = "expired"
	TaskTriggered = "triggered"
)

type TaskDone struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type RequestSnapshot struct{}

type RequestSnapshotHires struct {
	Reason string `json:"reason"`
}

type ChangeSummary struct {
	Text string `json:"text"`
}

type IngestError struct {
	Text string `json:"text"`
}

type SceneDescription struct {
	Text string `json:"text"`
}

// Span bounds the history a context update was computed from, in Unix ms.
// From is null when no history exists yet.
type Span struct {
	From *int64 `json:"from"`
	To   int64  `json:"to"`
}

type ContextUpdate struct {
	Text       string `json:"text"`
	Count      int    `json:"count"`
	WindowUsed int    `json:"windowUsed"`
	Span       Span   `json:"span"`
}

type SuggestedActions struct {
	Actions []string `json:"actions"`
}

type ScreenAudioTranscript struct {
	Text string `json:"text"`
}

func (WorkerOnline) outbound()          {}
func (WorkerAck) outbound()             {}
func (Pong) outbound()                  {}
func (StructuredAnswer) outbound()      {}
func (TaskAck) outbound()               {}
func (TaskDone) outbound()              {}
func (RequestSnapshot) outbound()       {}
func (RequestSnapshotHires) outbound()  {}
func (ChangeSummary) outbound()         {}
func (IngestError) outbound()           {}
func (SceneDescription) outbound()      {}
func (ContextUpdate) outbound()         {}
func (SuggestedActions) outbound()      {}
func (ScreenAudioTranscript) outbound() {}

func (WorkerOnline) MessageType() string          { return TypeWorkerOnline }
func (WorkerAck) MessageType() string             { return TypeWorkerAck }
func (Pong) MessageType() string                  { return TypePong }
func (StructuredAnswer) MessageType() string      { return TypeStructuredAnswer }
func (TaskAck) MessageType() string               { return TypeTaskAck }
func (TaskDone) MessageType() string              { return TypeTaskDone }
func (RequestSnapshot) MessageType() string       { return TypeRequestSnapshot }
func (RequestSnapshotHires) MessageType() string  { return TypeRequestSnapshotHires }
func (ChangeSummary) MessageType() string         { return TypeChangeSummary }
func (IngestError) MessageType() string           { return TypeIngestError }
func (SceneDescription) MessageType() string      { return TypeSceneDescription }
func (ContextUpdate) MessageType() string         { return TypeContextUpdate }
func (SuggestedActions) MessageType() string      { return TypeSuggestedActions }
func (ScreenAudioTranscript) MessageType() string { return TypeScreenAudioTranscript }
