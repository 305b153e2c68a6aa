package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	t.Parallel()

	minutes := 10.0
	since := 30000.0
	cases := []struct {
		raw  string
		want Inbound
	}{
		{`{"type":"client_online","identity":"viewer-1"}`, ClientOnline{Identity: "viewer-1"}},
		{`{"type":"ping"}`, Ping{}},
		{`{"type":"intent_explain_error"}`, IntentExplainError{}},
		{`{"type":"intent_compare_screens"}`, IntentCompareScreens{}},
		{`{"type":"intent_summarize_session"}`, IntentSummarizeSession{}},
		{`{"type":"user_query","text":"what is this?"}`, UserQuery{Text: "what is this?"}},
		{`{"type":"start_task_track_error","minutes":10,"pattern":"panic"}`, StartTaskTrackError{Minutes: &minutes, Pattern: "panic"}},
		{`{"type":"start_task_track_error"}`, StartTaskTrackError{}},
		{`{"type":"cancel_task","id":7}`, CancelTask{ID: 7}},
		{`{"type":"cancel_task","id":0}`, CancelTask{ID: 0}},
		{`{"type":"describe_scene"}`, DescribeScene{}},
		{`{"type":"what_changed","sinceMs":30000}`, WhatChanged{SinceMs: &since}},
		{`{"type":"what_changed"}`, WhatChanged{}},
		{`{"type":"snapshot_thumbnail","jpeg":"abc","hash":"h1","ingestOnly":true}`, SnapshotThumbnail{JPEG: "abc", Hash: "h1", IngestOnly: true}},
		{`{"type":"snapshot_hires","jpeg":"abc"}`, SnapshotHires{JPEG: "abc"}},
	}

	for _, tc := range cases {
		got, err := Decode([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.want.MessageType(), got.MessageType())
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"type":"launch_rockets"}`,
		`{"type":"user_query"}`,
		`{"type":"user_query","text":42}`,
		`{"type":"cancel_task"}`,
		`{"type":"cancel_task","id":"7"}`,
		`{"type":"snapshot_thumbnail","ingestOnly":true}`,
		`{"type":"snapshot_hires"}`,
	} {
		_, err := Decode([]byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrMalformed), raw)
	}
}

func TestDecodeIgnoresMistypedOptionalFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Inbound
	}{
		{`{"type":"snapshot_thumbnail","jpeg":"abc","hash":12345,"ingestOnly":true}`, SnapshotThumbnail{JPEG: "abc", IngestOnly: true}},
		{`{"type":"snapshot_thumbnail","jpeg":"abc","ingestOnly":"yes"}`, SnapshotThumbnail{JPEG: "abc"}},
		{`{"type":"start_task_track_error","minutes":"ten","pattern":7}`, StartTaskTrackError{}},
		{`{"type":"what_changed","sinceMs":"soon"}`, WhatChanged{}},
		{`{"type":"client_online","identity":{"name":"viewer"}}`, ClientOnline{}},
		{`{"type":"cancel_task","id":1.5}`, CancelTask{ID: NoTaskID}},
		{`{"type":"cancel_task","id":1e300}`, CancelTask{ID: NoTaskID}},
	}

	for _, tc := range cases {
		got, err := Decode([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestEncodePutsTypeFirst(t *testing.T) {
	t.Parallel()

	data, err := Encode(TaskDone{ID: 3, Status: TaskTriggered, Note: "Error pattern reappeared."})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"task_done","id":3,"status":"triggered","note":"Error pattern reappeared."}`, string(data))

	data, err = Encode(RequestSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"request_snapshot"}`, string(data))
}

func TestEncodeContextUpdateSpan(t *testing.T) {
	t.Parallel()

	data, err := Encode(ContextUpdate{Text: "x", Count: 2, WindowUsed: 10, Span: Span{To: 99}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "context_update", raw["type"])
	span := raw["span"].(map[string]any)
	assert.Nil(t, span["from"])
	assert.EqualValues(t, 99, span["to"])
}
