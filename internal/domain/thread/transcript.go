package thread

// TranscriptItem is one visible element of a thread's conversation: either a
// persisted entry or a live item from the turn in flight.
type TranscriptItem struct {
	Entry      *Entry          `json:"entry,omitempty"`
	InProgress *InProgressItem `json:"in_progress,omitempty"`
}

// MergeTranscript returns the visible conversation: all persisted entries in
// seq order followed by any in-progress items not yet matched by a persisted
// entry with the same item id. A persisted entry always wins over the live
// copy of the same item.
func MergeTranscript(entries []Entry, live []InProgressItem) []TranscriptItem {
	persisted := make(map[string]struct{}, len(entries))
	for i := range entries {
		if entries[i].ItemID != "" {
			persisted[entries[i].ItemID] = struct{}{}
		}
	}

	items := make([]TranscriptItem, 0, len(entries)+len(live))
	for i := range entries {
		items = append(items, TranscriptItem{Entry: &entries[i]})
	}
	for i := range live {
		if _, dup := persisted[live[i].ItemID]; dup {
			continue
		}
		items = append(items, TranscriptItem{InProgress: &live[i]})
	}
	return items
}
