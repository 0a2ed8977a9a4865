package errors

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "wt", false},
		{"valid with dash", "wt-sgA", false},
		{"valid with underscore", "wt_sgA_r1", false},
		{"valid with dot", "lib.1", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"path traversal ..", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"leading dot", ".hidden", true},
		{"space", "wt sgA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName("experiment", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "reads/wt_r1.tsv.gz", false},
		{"absolute", "/data/reads/wt_r1.tsv", false},
		{"parent", "../reads/wt_r1.tsv", false},

		{"empty", "", true},
		{"null byte", "reads\x00.tsv", true},
		{"backslash", "reads\\wt.tsv", true},
		{"too long", strings.Repeat("a", 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStoreURL(t *testing.T) {
	tests := []struct {
		kind    string
		url     string
		wantErr bool
	}{
		{"redis", "redis://localhost:6379/0", false},
		{"redis", "rediss://cache:6380", false},
		{"mongo", "mongodb://localhost:27017", false},
		{"mongo", "mongodb+srv://cluster.example.net", false},

		{"redis", "", true},
		{"redis", "http://localhost:6379", true},
		{"mongo", "redis://localhost", true},
		{"file", "file:///tmp", true},
	}

	for _, tt := range tests {
		err := ValidateStoreURL(tt.kind, tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateStoreURL(%q, %q) error = %v, wantErr %v", tt.kind, tt.url, err, tt.wantErr)
		}
	}
}
