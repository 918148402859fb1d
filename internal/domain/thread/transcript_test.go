package thread_test

import (
	"encoding/json"
	"testing"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/stretchr/testify/require"
)

func TestMergeTranscript_LiveItemShownUntilPersisted(t *testing.T) {
	live := []thread.InProgressItem{
		{ItemID: "item-1", Kind: thread.KindAgentMessage, Payload: json.RawMessage(`{"text":"partial"}`)},
	}

	merged := thread.MergeTranscript(nil, live)
	require.Len(t, merged, 1)
	require.Nil(t, merged[0].Entry)
	require.Equal(t, "item-1", merged[0].InProgress.ItemID)

	// Once the persisted entry with the same item id arrives, the live copy
	// is suppressed rather than duplicated.
	entries := []thread.Entry{
		{Seq: 1, Kind: thread.KindAgentMessage, ItemID: "item-1", Payload: json.RawMessage(`{"text":"final"}`)},
	}
	merged = thread.MergeTranscript(entries, live)
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].Entry)
	require.JSONEq(t, `{"text":"final"}`, string(merged[0].Entry.Payload))
}

func TestMergeTranscript_OrderedUnion(t *testing.T) {
	entries := []thread.Entry{
		{Seq: 1, Kind: thread.KindUserMessage},
		{Seq: 2, Kind: thread.KindAgentMessage, ItemID: "a"},
	}
	live := []thread.InProgressItem{
		{ItemID: "a"},
		{ItemID: "b"},
	}
	merged := thread.MergeTranscript(entries, live)
	require.Len(t, merged, 3)
	require.Equal(t, int64(1), merged[0].Entry.Seq)
	require.Equal(t, int64(2), merged[1].Entry.Seq)
	require.Equal(t, "b", merged[2].InProgress.ItemID)
}

func TestMergeTranscript_Empty(t *testing.T) {
	require.Empty(t, thread.MergeTranscript(nil, nil))
}
