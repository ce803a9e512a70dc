package timeline

import (
	"encoding/json"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNormalize_ResolvesMediaAndAuthor(t *testing.T) {
	payload := &RawTimeline{
		Data: []RawPost{
			{
				ID:          "1001",
				Text:        "hello",
				CreatedAt:   "2024-05-01T12:00:00Z",
				AuthorID:    "42",
				Attachments: &Attachments{MediaKeys: []string{"3_abc"}},
				PublicMetrics: &Metrics{
					ReplyCount: intPtr(2),
					LikeCount:  intPtr(9),
				},
			},
		},
		Includes: &Includes{
			Media: []Media{{MediaKey: "3_abc", Type: "photo", URL: "https://pbs.example/abc.jpg"}},
			Users: []Author{{ID: "42", Name: "Example", Username: "example"}},
		},
	}

	items := Normalize(payload)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}

	item := items[0]
	if item.Author == nil || item.Author.Username != "example" {
		t.Errorf("Author = %+v, want username example", item.Author)
	}
	if len(item.Media) != 1 || item.Media[0].MediaKey != "3_abc" {
		t.Errorf("Media = %+v, want one resolved record", item.Media)
	}
	if item.CreatedAt == nil {
		t.Error("CreatedAt = nil, want parsed timestamp")
	}
	if item.Permalink != "https://x.com/example/status/1001" {
		t.Errorf("Permalink = %q, want %q", item.Permalink, "https://x.com/example/status/1001")
	}
	if item.Metrics.ReplyCount == nil || *item.Metrics.ReplyCount != 2 {
		t.Errorf("ReplyCount = %v, want 2", item.Metrics.ReplyCount)
	}
	// Absent metrics stay absent, not zero.
	if item.Metrics.RetweetCount != nil {
		t.Errorf("RetweetCount = %v, want nil", item.Metrics.RetweetCount)
	}
}

func TestNormalize_DanglingMediaKeyIsOmitted(t *testing.T) {
	payload := &RawTimeline{
		Data: []RawPost{
			{
				ID:          "1001",
				Text:        "hello",
				AuthorID:    "42",
				Attachments: &Attachments{MediaKeys: []string{"3_unknown"}},
			},
		},
		Includes: &Includes{
			Media: []Media{{MediaKey: "3_abc", Type: "photo"}},
			Users: []Author{{ID: "42", Username: "example"}},
		},
	}

	items := Normalize(payload)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if len(items[0].Media) != 0 {
		t.Errorf("Media = %+v, want empty for dangling key", items[0].Media)
	}
	// The rest of the item is unaffected.
	if items[0].Author == nil {
		t.Error("Author = nil, want resolved author despite dangling media key")
	}
}

func TestNormalize_UnresolvableAuthor(t *testing.T) {
	payload := &RawTimeline{
		Data: []RawPost{
			{ID: "1001", Text: "hello", AuthorID: "missing"},
		},
		Includes: &Includes{
			Users: []Author{{ID: "42", Username: "example"}},
		},
	}

	items := Normalize(payload)
	if items[0].Author != nil {
		t.Errorf("Author = %+v, want nil for unresolvable id", items[0].Author)
	}
	if items[0].Permalink != "https://x.com/i/web/status/1001" {
		t.Errorf("Permalink = %q, want i/web fallback", items[0].Permalink)
	}
}

func TestNormalize_OrderPreserved(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{name: "ascending", ids: []string{"1", "2", "3"}},
		{name: "descending", ids: []string{"3", "2", "1"}},
		{name: "shuffled", ids: []string{"2", "3", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := &RawTimeline{}
			for _, id := range tt.ids {
				payload.Data = append(payload.Data, RawPost{ID: id})
			}

			items := Normalize(payload)
			if len(items) != len(tt.ids) {
				t.Fatalf("len(items) = %d, want %d", len(items), len(tt.ids))
			}
			for i, id := range tt.ids {
				if items[i].ID != id {
					t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
				}
			}
		})
	}
}

func TestNormalize_TotalOnDegenerateInputs(t *testing.T) {
	tests := []struct {
		name    string
		payload *RawTimeline
	}{
		{name: "nil payload", payload: nil},
		{name: "empty payload", payload: &RawTimeline{}},
		{name: "missing includes", payload: &RawTimeline{Data: []RawPost{{ID: "1"}}}},
		{
			name: "post without anything",
			payload: &RawTimeline{
				Data:     []RawPost{{}},
				Includes: &Includes{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Normalize(tt.payload)
			if items == nil {
				t.Error("Normalize() = nil, want non-nil slice")
			}
		})
	}
}

func TestNormalize_InvalidCreatedAt(t *testing.T) {
	payload := &RawTimeline{
		Data: []RawPost{{ID: "1", CreatedAt: "not a timestamp"}},
	}

	items := Normalize(payload)
	if items[0].CreatedAt != nil {
		t.Errorf("CreatedAt = %v, want nil for unparseable input", items[0].CreatedAt)
	}
}

func TestNormalize_FromWirePayload(t *testing.T) {
	raw := []byte(`{
		"data": [
			{"id": "1001", "text": "first", "author_id": "42",
			 "attachments": {"media_keys": ["3_abc", "3_missing"]},
			 "public_metrics": {"reply_count": 0, "like_count": 3}},
			{"id": "1002", "text": "second", "author_id": "43"}
		],
		"includes": {
			"media": [{"media_key": "3_abc", "type": "photo", "url": "https://pbs.example/a.jpg"}],
			"users": [{"id": "42", "name": "A", "username": "a"}]
		}
	}`)

	var payload RawTimeline
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	items := Normalize(&payload)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	if len(items[0].Media) != 1 {
		t.Errorf("items[0].Media has %d records, want 1 (dangling key omitted)", len(items[0].Media))
	}
	if items[0].Metrics.ReplyCount == nil || *items[0].Metrics.ReplyCount != 0 {
		t.Error("reply_count of zero must survive as an explicit zero, not absent")
	}
	if items[1].Author != nil {
		t.Error("items[1].Author should be nil (author 43 not in includes)")
	}
}
