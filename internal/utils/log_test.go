package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	description := "We are hiring a Senior Python Developer to build data pipelines on AWS."

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "disabled limit", input: description, limit: 0, expect: ""},
		{name: "negative limit", input: description, limit: -5, expect: ""},
		{name: "fits", input: "5 python jobs berlin", limit: 40, expect: "5 python jobs berlin"},
		{name: "exact length", input: "Acme GmbH", limit: 9, expect: "Acme GmbH"},
		{name: "long description", input: description, limit: 24, expect: "We are hiring a Senior P..."},
		{name: "chat message padding", input: "\n  10 data engineer germany \t", limit: 4, expect: "10 d..."},
		{name: "multibyte company", input: "Müller & Söhne Logistik", limit: 6, expect: "Müller..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
