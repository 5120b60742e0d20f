package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Options struct {
	Smtp SmtpConfig
	// FromName is the display name on outgoing mail, e.g. "EECS 203".
	FromName string
	// DryRun logs reports instead of sending them.
	DryRun bool
}

type Sender struct {
	config Options
}

func NewSender(options Options) Sender {
	return Sender{config: options}
}

// Send delivers every report to its student. A failed delivery does not
// stop the remaining ones, the failures come back paired with their
// reports so the operator can retry.
func (s Sender) Send(ctx context.Context, reports []Report) []SendFailure {
	ctx, span := tracer.Start(ctx, "Send")
	defer span.End()
	span.SetAttributes(attribute.Int("reports", len(reports)))

	var failures []SendFailure
	for _, report := range reports {
		err := s.sendOne(ctx, report)
		if err != nil {
			failures = append(failures, SendFailure{Report: report, Err: err})
		}
	}
	if len(failures) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d reports failed to send", len(failures)))
	}
	return failures
}

type SendFailure struct {
	Report Report
	Err    error
}

func (s Sender) sendOne(ctx context.Context, report Report) error {
	ctx, span := tracer.Start(ctx, "sendOne")
	defer span.End()
	span.SetAttributes(
		attribute.String("submission", report.SubmissionId),
		attribute.String("to", report.Student.Email),
	)

	if s.config.DryRun {
		slog.InfoContext(
			ctx, "dry run, not sending report",
			"to", report.Student.Email,
			"submission", report.SubmissionId,
			"body", report.Body(),
		)
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.Smtp.EmailAddress)
	mail.To = []string{report.Student.Email}
	mail.Subject = fmt.Sprintf("Unmatched pages in your %s submission", report.Assignment.Name)
	mail.Text = []byte(report.Body())

	addr := fmt.Sprintf("%s:%d", s.config.Smtp.Server, s.config.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.Smtp.EmailAddress, s.config.Smtp.Password, s.config.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// CsvLine renders a report the way spreadsheet-driven mail merge tools
// expect it, one "name;email;message" line. Newlines inside the message
// are flattened so the line stays a line.
func CsvLine(report Report) string {
	message := strings.ReplaceAll(report.Body(), "\n", " ")
	return fmt.Sprintf("%s;%s;%s", report.Student.Name, report.Student.Email, message)
}
