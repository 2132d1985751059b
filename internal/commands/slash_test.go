package commands

import "testing"

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{text: "/echo hi there", wantName: "echo", wantArgs: "hi there", wantOK: true},
		{text: "  /review  ", wantName: "review", wantOK: true},
		{text: "/frontend:lint src\n--fix", wantName: "frontend:lint", wantArgs: "src\n--fix", wantOK: true},
		{text: "hello /echo", wantOK: false},
		{text: "/", wantOK: false},
		{text: "/ echo", wantOK: false},
		{text: "/usr/bin/env ls", wantOK: false},
		{text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := ParseSlashCommand(tt.text)
			if ok != tt.wantOK || name != tt.wantName || args != tt.wantArgs {
				t.Errorf("ParseSlashCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.text, name, args, ok, tt.wantName, tt.wantArgs, tt.wantOK)
			}
		})
	}
}
