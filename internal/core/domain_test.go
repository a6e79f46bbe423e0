package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid date", "2024-06-15", false},
		{"valid with whitespace", " 2024-06-15 ", false},
		{"wrong layout", "15.06.2024", true},
		{"not a date", "yesterday", true},
		{"empty", "", true},
		{"impossible day", "2024-02-31", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDate(tt.input)
			if tt.wantErr && err == nil {
				t.Errorf("ParseDate(%q): expected error, got nil", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ParseDate(%q): unexpected error: %v", tt.input, err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("ParseDate(%q): error should wrap ErrInvalidDate, got %v", tt.input, err)
			}
		})
	}
}

func TestDate_MonthKey(t *testing.T) {
	tests := []struct {
		date Date
		want string
	}{
		{NewDate(2024, 6, 15), "2024-06"},
		{NewDate(2024, 12, 1), "2024-12"},
		{NewDate(999, 1, 31), "0999-01"},
	}

	for _, tt := range tests {
		if got := tt.date.MonthKey(); got != tt.want {
			t.Errorf("MonthKey() = %q, want %q", got, tt.want)
		}
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 6, 15)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"2024-06-15"` {
		t.Errorf("Marshal = %s, want %q", data, `"2024-06-15"`)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip changed date: got %s, want %s", back, d)
	}
}

func TestDate_UnmarshalJSONRejectsNull(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`null`), &d); err == nil {
		t.Error("expected error for null date")
	}
}

func TestParseEntryType(t *testing.T) {
	tests := []struct {
		input   string
		want    EntryType
		wantErr bool
	}{
		{"income", Income, false},
		{"expense", Expense, false},
		{"INCOME", Income, false},
		{" Expense ", Expense, false},
		{"transfer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEntryType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEntryType(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntryType(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEntryType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEntry_Validate(t *testing.T) {
	valid := Entry{
		Date:        NewDate(2024, 6, 1),
		Description: "Office supplies",
		Type:        Expense,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid entry rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(e *Entry)
		wantErr error
	}{
		{"zero date", func(e *Entry) { e.Date = Date{} }, ErrInvalidDate},
		{"empty description", func(e *Entry) { e.Description = "" }, ErrEmptyDescription},
		{"blank description", func(e *Entry) { e.Description = "   " }, ErrEmptyDescription},
		{"overlong description", func(e *Entry) { e.Description = strings.Repeat("x", 501) }, ErrDescriptionTooLong},
		{"bad type", func(e *Entry) { e.Type = "transfer" }, ErrInvalidEntryType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTagName(t *testing.T) {
	if err := ValidateTagName("Büro"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateTagName("  "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("blank name: got %v, want ErrEmptyName", err)
	}
	if err := ValidateTagName(strings.Repeat("x", 101)); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("overlong name: got %v, want ErrNameTooLong", err)
	}
}
