package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestResultWebhookRoundTrip(t *testing.T) {
	score := 0.91
	original := Result{
		JobID:  "job-42",
		Prompt: "how do i fix this",
		Answer: "Do the thing [1].",
		Citations: []Citation{
			{Ref: 1, Title: "Repair guide", URL: "https://kb/repair", Score: &score},
			{Ref: 2, Title: "Source"},
		},
		Mode:          ModeRetrieval,
		TopK:          8,
		ScoreFloor:    0.25,
		TS:            1724572800,
		CallbackError: "",
	}

	body, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed Result
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, parsed) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", original, parsed)
	}
}

func TestResultWireFieldNames(t *testing.T) {
	body, err := json.Marshal(Result{JobID: "j", Citations: []Citation{}, Mode: ModeRAG})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"jobId", "prompt", "answer", "citations", "mode", "topK", "scoreFloor", "ts"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing wire field %q in %s", key, body)
		}
	}
	if _, ok := raw["callbackError"]; ok {
		t.Fatalf("empty callbackError must be omitted")
	}
}
