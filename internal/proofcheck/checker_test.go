package proofcheck

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/post/123", false},
		{"http://example.com", false},
		{"ftp://example.com/file", true},
		{"example.com/no-scheme", true},
		{"https://", true},
		{"", true},
		{"javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			"og:title preferred",
			`<html><head><meta property="og:title" content="Concert Tickets"/><title>fallback</title></head></html>`,
			"Concert Tickets",
		},
		{
			"title fallback",
			`<html><head><title>  Dinner Reservation  </title></head></html>`,
			"Dinner Reservation",
		},
		{
			"empty og:title falls back",
			`<html><head><meta property="og:title" content=""/><title>Plan B</title></head></html>`,
			"Plan B",
		},
		{
			"no title at all",
			`<html><body><p>nothing</p></body></html>`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTitle(docFromHTML(t, tt.html))
			if got != tt.expected {
				t.Errorf("ExtractTitle = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractTitleTruncates(t *testing.T) {
	long := strings.Repeat("ü", 300)
	doc := docFromHTML(t, "<html><head><title>"+long+"</title></head></html>")
	got := ExtractTitle(doc)
	if runes := []rune(got); len(runes) != 200 {
		t.Errorf("truncated title has %d runes, want 200", len(runes))
	}
}
