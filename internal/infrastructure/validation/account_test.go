package validation

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "Shopper", nil},
		{"unicode", "দোকানি", nil},
		{"empty", "", ErrNameEmpty},
		{"only spaces", "   ", ErrNameEmpty},
		{"too long", strings.Repeat("a", 101), ErrNameTooLong},
		{"at limit", strings.Repeat("a", 100), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input); err != tt.wantErr {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"a@example.com", false},
		{"first.last+tag@shop.example.co", false},
		{"", true},
		{"no-at-sign", true},
		{"a@localhost", true},
		{"a b@example.com", true},
		{"a@@example.com", true},
		{"a@example.", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMobile(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"0170", false},
		{"+8801712345678", false},
		{"017-1234 5678", false},
		{"(017) 12345678", false},
		{"017", true},
		{"abcd1234", true},
		{"+", true},
		{"1234567890123456", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateMobile(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMobile(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeMobile(t *testing.T) {
	if got := SanitizeMobile(" 017-1234 (56) "); got != "017123456" {
		t.Errorf("SanitizeMobile = %q", got)
	}
}
