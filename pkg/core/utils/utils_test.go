package utils

import (
	"testing"
)

func TestRepairJSONFixesCommonDamage(t *testing.T) {
	repaired, err := RepairJSON(`{name: 'PKME', price: 36,}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	if _, err := SmartParse(repaired, &out); err != nil {
		t.Fatalf("repaired output still unparsable: %v", err)
	}
	if out.Name != "PKME" || out.Price != 36 {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestMustRepairJSONFallsBackToEmptyObject(t *testing.T) {
	if got := MustRepairJSON(""); got == "" {
		t.Error("MustRepairJSON should always return a JSON string")
	}
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON(`{
  # a comment
  ticker: PKME
  wacc: 0.1
}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if _, err := SmartParse(out, &decoded); err != nil {
		t.Fatalf("hjson output not valid json: %v", err)
	}
	if decoded["ticker"] != "PKME" {
		t.Errorf("ticker: got %v", decoded["ticker"])
	}
}

func TestSmartParseStrategies(t *testing.T) {
	var out map[string]interface{}

	// Strict JSON passes through untouched.
	if _, err := SmartParse(`{"a":1}`, &out); err != nil {
		t.Errorf("strict json failed: %v", err)
	}

	// Model output wrapped in a code fence needs repair.
	fenced := "```json\n{\"a\": 1}\n```"
	if _, err := SmartParse(fenced, &out); err != nil {
		t.Errorf("fenced json failed: %v", err)
	}
}

func TestCleanMarkdown(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"```markdown\n# Title\n```", "# Title"},
		{"```\nbody\n```", "body"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := CleanMarkdown(tc.in); got != tc.want {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateMarkdown(t *testing.T) {
	if !ValidateMarkdown("# Heading\n\nSome **bold** text.") {
		t.Error("valid markdown rejected")
	}
}
