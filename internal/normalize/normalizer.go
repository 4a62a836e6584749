package normalize

import (
	"bufio"
	"bytes"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// UnknownSender is the sentinel used when a message carries no sender at all.
// A missing header never fails the whole email.
const UnknownSender = "unknown@unknown"

var (
	orderIDPattern   = regexp.MustCompile(`\bLC\d{6}\b`)
	orderRefPattern  = regexp.MustCompile(`#(\d{4,})`)
	productPattern   = regexp.MustCompile(`\b\d{2,5}-\d{2,4}(?:-\d{2,4})?\b`)
	productSKUPatten = regexp.MustCompile(`\b[A-Za-z]{2,}-\d{2,}\b`)
	emailAddrPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	subjectLinePattern = regexp.MustCompile(`(?i)Subject[：:]\s*(.+)`)
)

// EmailNormalizer turns raw message bytes into a NormalizedEmail. It accepts
// both RFC 2822 messages and the plain-text format used by the support
// mailbox exports (Subject:/From: prefixed lines followed by free text).
type EmailNormalizer struct {
	logger *zap.Logger
}

// NewEmailNormalizer creates a new email normalizer.
func NewEmailNormalizer(logger *zap.Logger) *EmailNormalizer {
	return &EmailNormalizer{logger: logger}
}

// Normalize builds the canonical record for one raw message. Header fields
// are tolerated missing; only an undecodable body fails the email.
func (n *EmailNormalizer) Normalize(raw core.RawEmail) (*core.NormalizedEmail, error) {
	if len(bytes.TrimSpace(raw.Data)) == 0 {
		return nil, core.MalformedMessage(fmt.Errorf("email %q has an empty body", raw.ID))
	}

	email := &core.NormalizedEmail{
		ID:         raw.ID,
		ReceivedAt: raw.ReceivedAt,
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Data))
	if err == nil {
		email.From = senderAddr(msg.Header.Get("From"))
		email.To = msg.Header.Get("To")
		email.Subject = msg.Header.Get("Subject")
		if date, derr := msg.Header.Date(); derr == nil {
			email.ReceivedAt = date
		}
		body, berr := extractTextBody(msg)
		if berr != nil {
			return nil, core.MalformedMessage(fmt.Errorf("failed to read body of %q: %w", raw.ID, berr))
		}
		email.Body = body
	} else {
		// Not an RFC 2822 message: treat the whole text as the body and
		// pull headers out of prefixed lines.
		n.logger.Debug("Falling back to plain-text parsing",
			zap.String("email_id", raw.ID),
			zap.Error(err))
		email.Body = string(raw.Data)
		email.Subject = firstSubmatch(subjectLinePattern, email.Body)
		email.From = firstHeaderAddr(raw.Data)
	}

	body, err := decodeBody(email.Body)
	if err != nil {
		return nil, core.MalformedMessage(fmt.Errorf("email %q: %w", raw.ID, err))
	}
	email.Body = body

	if strings.TrimSpace(email.From) == "" {
		if addr := firstAddr(email.Body); addr != "" {
			email.From = addr
		} else {
			email.From = UnknownSender
		}
	}
	if strings.TrimSpace(email.Subject) == "" {
		email.Subject = "(no subject)"
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = time.Now()
	}

	email.Entities = extractEntities(email.Subject + "\n" + email.Body)

	n.logger.Debug("Email normalized",
		zap.String("email_id", email.ID),
		zap.String("from", email.From),
		zap.Strings("order_ids", email.Entities.OrderIDs),
		zap.Strings("product_ids", email.Entities.ProductIDs))

	return email, nil
}

// decodeBody verifies the body is text. Invalid UTF-8 is re-decoded as
// Latin-1 unless the bytes look binary, in which case the message is
// malformed.
func decodeBody(body string) (string, error) {
	if utf8.ValidString(body) {
		if strings.ContainsRune(body, 0) {
			return "", fmt.Errorf("body contains binary data")
		}
		return body, nil
	}
	if strings.ContainsRune(body, 0) {
		return "", fmt.Errorf("body cannot be decoded as text")
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(body)
	if err != nil {
		return "", fmt.Errorf("body cannot be decoded as text: %w", err)
	}
	return decoded, nil
}

// extractEntities runs the lightweight pattern extraction. Best-effort only:
// no match simply leaves a slice empty.
func extractEntities(text string) core.ExtractedEntities {
	var entities core.ExtractedEntities

	seen := map[string]bool{}
	for _, id := range orderIDPattern.FindAllString(text, -1) {
		if !seen[id] {
			seen[id] = true
			entities.OrderIDs = append(entities.OrderIDs, id)
		}
	}
	for _, m := range orderRefPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			entities.OrderIDs = append(entities.OrderIDs, m[1])
		}
	}

	seen = map[string]bool{}
	for _, pattern := range []*regexp.Regexp{productPattern, productSKUPatten} {
		for _, id := range pattern.FindAllString(text, -1) {
			if orderIDPattern.MatchString(id) {
				continue
			}
			if !seen[id] {
				seen[id] = true
				entities.ProductIDs = append(entities.ProductIDs, id)
			}
		}
	}

	seen = map[string]bool{}
	for _, addr := range emailAddrPattern.FindAllString(text, -1) {
		addr = strings.ToLower(addr)
		if !seen[addr] {
			seen[addr] = true
			entities.EmailAddrs = append(entities.EmailAddrs, addr)
		}
	}

	return entities
}

// senderAddr reduces a From header to its bare address, so customer lookup
// by sender works when the header carries a display name. Unparseable
// headers pass through as-is.
func senderAddr(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	return header
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstHeaderAddr scans the leading lines of a plain-text export for an
// email address, assuming the first one names the sender.
func firstHeaderAddr(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; scanner.Scan() && i < 10; i++ {
		if addr := firstAddr(scanner.Text()); addr != "" {
			return addr
		}
	}
	return ""
}

func firstAddr(text string) string {
	return strings.ToLower(emailAddrPattern.FindString(text))
}
