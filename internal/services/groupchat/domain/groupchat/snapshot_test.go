package groupchat

import "testing"

func TestSnapshotRoundTrip(t *testing.T) {
	chat, _ := history(t)
	chat = chat.WithVersion(4)

	data, err := MarshalSnapshot(chat)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(chat) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", got, chat)
	}
}

func TestSnapshotOfEmptyStateFails(t *testing.T) {
	if _, err := MarshalSnapshot(Empty()); err == nil {
		t.Fatal("expected error for empty state")
	}
}

func TestUnmarshalSnapshotRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalSnapshot([]byte(`{"id":""}`)); err == nil {
		t.Fatal("expected error for snapshot without id")
	}
	if _, err := UnmarshalSnapshot([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
