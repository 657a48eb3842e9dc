package intent

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		wantIntent string
	}{
		{
			"bare object",
			`{"intent":"DROP","slots":{},"confidence":0.9}`,
			true, "DROP",
		},
		{
			"object inside prose",
			"Klar, hier ist das Ergebnis:\n{\"intent\":\"SET_BPM\",\"slots\":{\"delta\":10},\"confidence\":0.8}\nViel Spaß!",
			true, "SET_BPM",
		},
		{
			"object inside markdown fence",
			"```json\n{\"intent\":\"BREAK\",\"slots\":{\"bars\":8},\"confidence\":0.7}\n```",
			true, "BREAK",
		},
		{
			"nested slots object",
			`{"intent":"SCHEDULE","slots":{"action":"drop","bars":16},"confidence":0.6}`,
			true, "SCHEDULE",
		},
		{"no object at all", "Ich bin mir nicht sicher, was du meinst.", false, ""},
		{"malformed object", `{"intent": DROP}`, false, ""},
		{"empty input", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok := ExtractJSON(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got, _ := data["intent"].(string); got != tt.wantIntent {
				t.Fatalf("intent = %q, want %q", got, tt.wantIntent)
			}
		})
	}
}

func TestExtractJSON_FirstObjectWins(t *testing.T) {
	data, ok := ExtractJSON(`{"intent":"SAVE","slots":{},"confidence":1} {"intent":"RESET"}`)
	if !ok {
		t.Fatal("expected an object")
	}
	if got, _ := data["intent"].(string); got != "SAVE" {
		t.Fatalf("intent = %q, want SAVE", got)
	}
}
