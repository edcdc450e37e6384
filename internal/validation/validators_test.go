package validation

import (
	"testing"
)

func TestClockTimeTag(t *testing.T) {
	t.Parallel()

	type window struct {
		Start string `validate:"clock_time"`
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"morning", "09:00", false},
		{"single digit hour", "9:30", false},
		{"end of day", "24:00", false},
		{"empty is allowed", "", false},
		{"past end of day", "24:30", true},
		{"bad minutes", "10:60", true},
		{"no separator", "0900", true},
		{"garbage", "noon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(window{Start: tt.value})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSlotStatusTag(t *testing.T) {
	t.Parallel()

	type update struct {
		Status string `validate:"required,slot_status"`
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"pending", "pending", false},
		{"accepted", "accepted", false},
		{"completed", "completed", false},
		{"cancelled", "cancelled", false},
		{"unknown", "rejected", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(update{Status: tt.value})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlotStatus(t *testing.T) {
	t.Parallel()

	if err := ValidateSlotStatus("accepted"); err != nil {
		t.Errorf("ValidateSlotStatus(accepted) unexpected error: %v", err)
	}
	if err := ValidateSlotStatus("done"); err == nil {
		t.Error("ValidateSlotStatus(done) expected error")
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello  ", "hello"},
		{"drops control chars", "a\x00b\x07c", "abc"},
		{"keeps newline and tab", "a\nb\tc", "a\nb\tc"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
