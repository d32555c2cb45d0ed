package analyzer

import (
	"context"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	a := New()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases and splits",
			input: "Quick Brown Fox",
			want:  []string{"quick", "brown", "fox"},
		},
		{
			name:  "drops stopwords",
			input: "the fox and the dog",
			want:  []string{"fox", "dog"},
		},
		{
			name:  "drops single characters and punctuation",
			input: "a fox, a dog!",
			want:  []string{"fox", "dog"},
		},
		{
			name:  "keeps digits and underscores",
			input: "chunk_42 rev2",
			want:  []string{"chunk_42", "rev2"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Tokenize(context.Background(), tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeStemming(t *testing.T) {
	a := New(WithStemming())

	tests := []struct {
		input string
		want  string
	}{
		{"jumps", "jump"},
		{"jumped", "jump"},
		{"jumping", "jump"},
		{"dogs", "dog"},
		{"running", "run"},
	}
	for _, tt := range tests {
		got, err := a.Tokenize(context.Background(), tt.input)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("Tokenize(%q) = %v, want [%s]", tt.input, got, tt.want)
		}
	}
}

func TestTokenizeWithoutStopwords(t *testing.T) {
	a := New(WithoutStopwords())
	got, err := a.Tokenize(context.Background(), "the fox")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"the", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}
