package stringutil

import (
	"slices"
	"testing"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid digits", "123456", true},
		{"Valid student ID", "41", true},
		{"Empty string", "", false},
		{"Contains letter", "2do", false},
		{"Contains space", "123 456", false},
		{"Special chars", "123-456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNumeric(tt.input); got != tt.want {
				t.Errorf("IsNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"Información", "informacion"},
		{"MUÑOZ", "munoz"},
		{"¿Cuántos alumnos hay?", "¿cuantos alumnos hay?"},
		{"2° A", "2° a"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	t.Parallel()

	got := Words("¿Quién es él? 2do, grupo-A")
	want := []string{"Quién", "es", "él", "2do", "grupo", "A"}
	if !slices.Equal(got, want) {
		t.Errorf("Words() = %v, want %v", got, want)
	}
}

func TestIsAlphabetic(t *testing.T) {
	t.Parallel()

	if !IsAlphabetic("JIMÉNEZ") {
		t.Error("IsAlphabetic(JIMÉNEZ) = false, want true")
	}
	if IsAlphabetic("A1") || IsAlphabetic("") {
		t.Error("IsAlphabetic should reject digits and empty strings")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	if got := NormalizeWhitespace("  hola \t  mundo\n"); got != "hola mundo" {
		t.Errorf("NormalizeWhitespace() = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("constancia", 5); got != "const…" {
		t.Errorf("TruncateRunes() = %q", got)
	}
	if got := TruncateRunes("año", 5); got != "año" {
		t.Errorf("TruncateRunes() short = %q", got)
	}
	if got := TruncateRunes("año", 0); got != "" {
		t.Errorf("TruncateRunes(0) = %q", got)
	}
}
