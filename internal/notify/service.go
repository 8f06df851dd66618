package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harborgate/site-api/internal/leads"
	"github.com/harborgate/site-api/pkg/logging"
)

// ContactNotifier sends a summary email for each stored contact-form lead.
// Delivery is best effort: a single attempt, no retry, and failures must be
// handled by the caller as log-and-continue.
type ContactNotifier struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

// NewContactNotifier wires a notifier to an email sender. Either a nil
// sender or an empty recipient leaves the notifier disabled.
func NewContactNotifier(sender EmailSender, recipient string, logger *logging.Logger) *ContactNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContactNotifier{
		sender:    sender,
		recipient: recipient,
		logger:    logger,
	}
}

// Enabled reports whether a notification will actually be attempted.
func (n *ContactNotifier) Enabled() bool {
	if n == nil || n.recipient == "" || n.sender == nil {
		return false
	}
	if _, disabled := n.sender.(*DisabledSender); disabled {
		return false
	}
	return true
}

// NotifyLead sends the lead summary to the configured recipient.
func (n *ContactNotifier) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if !n.Enabled() {
		return fmt.Errorf("notify: contact notifier not configured")
	}

	subject := fmt.Sprintf("New contact form submission from %s", lead.Name)
	msg := EmailMessage{
		To:      n.recipient,
		Subject: subject,
		Body:    formatLeadSummary(lead),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead %d: %w", lead.ID, err)
	}
	return nil
}

func formatLeadSummary(lead *leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	if lead.Phone != nil {
		fmt.Fprintf(&b, "Phone: %s\n", *lead.Phone)
	}
	if lead.Company != nil {
		fmt.Fprintf(&b, "Company: %s\n", *lead.Company)
	}
	if lead.Subject != nil {
		fmt.Fprintf(&b, "Subject: %s\n", *lead.Subject)
	}
	if lead.Locale != nil {
		fmt.Fprintf(&b, "Locale: %s\n", *lead.Locale)
	}
	fmt.Fprintf(&b, "Submitted: %s\n", lead.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "\n%s\n", lead.Message)
	return b.String()
}

var _ leads.Notifier = (*ContactNotifier)(nil)
