package notifications

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"contact_intake/internal/submission"
)

const (
	subjectPrefix   = "New Portfolio Message: "
	fallbackSubject = "New Portfolio Message"
)

// Message is a plain-text notification email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Compose builds the notification for a cleaned submission.
func Compose(adminEmail string, cleaned submission.Cleaned) Message {
	subject := fallbackSubject
	if cleaned.Subject != "" {
		subject = subjectPrefix + cleaned.Subject
	}

	var sb strings.Builder
	sb.WriteString("New contact form submission from your portfolio website:\n\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", cleaned.Name))
	sb.WriteString(fmt.Sprintf("Email: %s\n", cleaned.Email))
	sb.WriteString(fmt.Sprintf("Subject: %s\n\n", cleaned.Subject))
	sb.WriteString("Message:\n")
	sb.WriteString(cleaned.Message)
	sb.WriteString("\n\n---\n")
	sb.WriteString("This message was sent from your portfolio contact form.\n")
	sb.WriteString("Reply directly to this email to respond to the sender.")

	return Message{
		To:      adminEmail,
		ReplyTo: cleaned.Email,
		Subject: subject,
		Body:    sb.String(),
	}
}

// Render encodes the message as RFC 5322 text with a quoted-printable body.
func (m Message) Render(senderName, senderAddress string) ([]byte, error) {
	to, err := mail.ParseAddress(m.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}

	var buf bytes.Buffer
	if senderAddress != "" {
		from := mail.Address{Name: senderName, Address: senderAddress}
		writeHeader(&buf, "From", from.String())
	}
	writeHeader(&buf, "To", to.String())
	if replyTo := strings.TrimSpace(singleLine(m.ReplyTo)); replyTo != "" {
		// The address was validated upstream; formatting it directly quotes
		// local parts that net/mail would refuse to parse.
		writeHeader(&buf, "Reply-To", (&mail.Address{Address: replyTo}).String())
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", singleLine(m.Subject)))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `text/plain; charset="UTF-8"`)
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(crlf(m.Body))); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// crlf rewrites any mix of CRLF, CR and LF line endings as CRLF.
func crlf(s string) string {
	s = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// singleLine folds CR and LF into spaces so submitted text cannot add headers.
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}
