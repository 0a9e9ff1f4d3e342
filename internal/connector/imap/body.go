package imap

import (
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
)

// extractText pulls a plain-text body out of a raw RFC 5322 message.
// Multipart messages prefer text/plain; when only HTML is present the
// tags are stripped. Malformed messages degrade to an empty body rather
// than failing the whole fetch.
func extractText(r io.Reader) string {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return ""
	}

	plain, html := walkEntity(entity)
	if plain != "" {
		return plain
	}
	return stripHTML(html)
}

func walkEntity(entity *message.Entity) (plain, html string) {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			p, h := walkEntity(part)
			if plain == "" {
				plain = p
			}
			if html == "" {
				html = h
			}
			if plain != "" {
				return plain, html
			}
		}
		return plain, html
	}

	mediaType, _, err := entity.Header.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}
	switch mediaType {
	case "text/plain", "":
		body, _ := io.ReadAll(entity.Body)
		return strings.TrimSpace(string(body)), ""
	case "text/html":
		body, _ := io.ReadAll(entity.Body)
		return "", string(body)
	}
	return "", ""
}

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`[ \t]*\n[ \t\n]*`)
)

func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(s)
	s = whitespacePattern.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
