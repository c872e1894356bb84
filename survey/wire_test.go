package survey

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestSerializeRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	s := Survey{
		ID:          7,
		Title:       "Onboarding feedback",
		Description: "How did signup go?",
		Active:      true,
		Questions: []Question{
			{ID: 101, Text: "Pick one", Type: TypeRadio, Required: true, Options: []string{"Good", "Bad"}},
			{ID: 102, Text: "Tell us more", Type: TypeText, Required: false, Options: []string{}},
			{ID: 103, Text: "Rate us", Type: TypeRating, Required: false, Options: []string{}},
		},
		CreatedAt: created,
	}

	blob, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	got, err := Deserialize(blob)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, s)
	}
}

func TestSerializeEmitsBoundaryShape(t *testing.T) {
	s := Survey{Title: "T", Active: true, Questions: []Question{
		{ID: 1, Text: "Q", Type: TypeText, Options: []string{}},
	}}

	blob, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(blob, &wire); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if wire["title"] != "T" || wire["is_active"] != true {
		t.Errorf("wire = %v", wire)
	}
	if _, ok := wire["questions"].([]any); !ok {
		t.Errorf("questions not an array: %v", wire["questions"])
	}
	if _, ok := wire["questions_json"]; ok {
		t.Error("serialize must not emit questions_json")
	}
}

func TestDeserializeQuestionsJSON(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want []Question
	}{
		{
			"inline questions array",
			`{"title":"T","questions":[{"id":1,"text":"Q","type":"text","required":false,"options":[]}]}`,
			[]Question{{ID: 1, Text: "Q", Type: TypeText, Options: []string{}}},
		},
		{
			"questions_json string",
			`{"title":"T","questions_json":"[{\"id\":1,\"text\":\"Q\",\"type\":\"rating\",\"required\":true,\"options\":[]}]"}`,
			[]Question{{ID: 1, Text: "Q", Type: TypeRating, Required: true, Options: []string{}}},
		},
		{
			"missing question list",
			`{"title":"T"}`,
			[]Question{},
		},
		{
			"malformed questions_json",
			`{"title":"T","questions_json":"[{broken"}`,
			[]Question{},
		},
		{
			"questions_json holding null",
			`{"title":"T","questions_json":"null"}`,
			[]Question{},
		},
		{
			"non-array questions",
			`{"title":"T","questions":{"oops":true}}`,
			[]Question{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deserialize([]byte(tt.blob))
			if err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if !reflect.DeepEqual(got.Questions, tt.want) {
				t.Errorf("questions = %+v, want %+v", got.Questions, tt.want)
			}
		})
	}
}

func TestDeserializeMalformedRecord(t *testing.T) {
	if _, err := Deserialize([]byte(`{{`)); err == nil {
		t.Error("Deserialize() of invalid JSON must fail")
	}
}

func TestEncodeQuestions(t *testing.T) {
	encoded, err := EncodeQuestions(nil)
	if err != nil {
		t.Fatalf("EncodeQuestions() error = %v", err)
	}
	if encoded != "[]" {
		t.Errorf("EncodeQuestions(nil) = %q, want []", encoded)
	}

	qs := []Question{{ID: 9, Text: "Q", Type: TypeSelect, Options: []string{"A", "B"}}}
	encoded, err = EncodeQuestions(qs)
	if err != nil {
		t.Fatalf("EncodeQuestions() error = %v", err)
	}
	if got := ParseQuestions([]byte(encoded)); !reflect.DeepEqual(got, qs) {
		t.Errorf("ParseQuestions(EncodeQuestions()) = %+v, want %+v", got, qs)
	}
}
