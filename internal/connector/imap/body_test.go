package imap

import (
	"strings"
	"testing"
)

func TestExtractTextPlain(t *testing.T) {
	raw := "Content-Type: text/plain\r\n" +
		"\r\n" +
		"Thank you for applying to Acme.\r\n"

	got := extractText(strings.NewReader(raw))
	if got != "Thank you for applying to Acme." {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextPrefersPlainPart(t *testing.T) {
	raw := "Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body><p>HTML version</p></body></html>\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Plain version\r\n" +
		"--BOUND--\r\n"

	got := extractText(strings.NewReader(raw))
	if got != "Plain version" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextFallsBackToStrippedHTML(t *testing.T) {
	raw := "Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><style>p{color:red}</style><body><p>We regret to inform you.</p></body></html>\r\n"

	got := extractText(strings.NewReader(raw))
	if !strings.Contains(got, "We regret to inform you.") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "<") || strings.Contains(got, "color:red") {
		t.Fatalf("html not stripped: %q", got)
	}
}

func TestExtractTextMalformedMessage(t *testing.T) {
	if got := extractText(strings.NewReader("not a mime message")); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestStripHTMLEntities(t *testing.T) {
	got := stripHTML("<p>Johnson &amp; Johnson&nbsp;offer</p>")
	if got != "Johnson & Johnson offer" {
		t.Fatalf("got %q", got)
	}
}
