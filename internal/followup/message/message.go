// Package message renders the reminder emails sent to clients. Templates are
// fixed per reminder number; personalization is plain placeholder
// substitution so accountants can preview exactly what goes out.
package message

import (
	"fmt"
	"strings"
)

// Message is a rendered reminder ready for delivery.
type Message struct {
	Subject string
	Body    string
}

// Personalization carries the values substituted into a template.
type Personalization struct {
	ClientName      string
	TaxYear         int
	Missing         []string
	AccountantName  string
	AccountantFirm  string
	AccountantPhone string
}

type template struct {
	subject string
	body    string
}

// templates escalate in tone: the first is a polite request, the second notes
// the deadline, the third asks for a phone call.
var templates = map[int]template{
	1: {
		subject: "Documents needed for your {tax_year} tax return",
		body: `Dear {client_name},

I hope this email finds you well. I'm reaching out regarding your {tax_year} tax return.

To complete your return, I still need the following documents:

{missing_documents_list}

Please upload these documents to your secure client portal at your earliest convenience.

Thank you for your prompt attention to this matter.

Best regards,
{accountant_name}
{accountant_firm}`,
	},
	2: {
		subject: "Reminder: Documents still needed for your {tax_year} tax return",
		body: `Dear {client_name},

This is a friendly reminder that I'm still waiting for the following documents:

{missing_documents_list}

The tax filing deadline is approaching. Please upload these documents as soon as possible.

Best regards,
{accountant_name}
{accountant_firm}`,
	},
	3: {
		subject: "URGENT: Documents needed to avoid tax filing delays",
		body: `Dear {client_name},

This is my third request for the following documents:

{missing_documents_list}

Without these documents, I cannot file your return on time, which may result in penalties.

Please call me directly at {accountant_phone}.

Sincerely,
{accountant_name}
{accountant_firm}`,
	},
}

// Render builds the reminder message for the given number. Reminders past
// the third reuse the urgent template; a non-empty customPrefix is prepended
// to the body.
func Render(reminderNumber int, data Personalization, customPrefix string) Message {
	tpl, ok := templates[reminderNumber]
	if !ok {
		if reminderNumber > 3 {
			tpl = templates[3]
		} else {
			tpl = templates[1]
		}
	}

	replacer := strings.NewReplacer(
		"{client_name}", valueOr(data.ClientName, "Valued Client"),
		"{tax_year}", fmt.Sprintf("%d", data.TaxYear),
		"{missing_documents_list}", formatMissing(data.Missing),
		"{accountant_name}", valueOr(data.AccountantName, "Your Accountant"),
		"{accountant_firm}", data.AccountantFirm,
		"{accountant_phone}", data.AccountantPhone,
	)

	body := replacer.Replace(tpl.body)
	if customPrefix != "" {
		body = customPrefix + "\n\n" + body
	}
	return Message{
		Subject: replacer.Replace(tpl.subject),
		Body:    body,
	}
}

func formatMissing(missing []string) string {
	if len(missing) == 0 {
		return "None - all documents received!"
	}
	lines := make([]string, len(missing))
	for i, doc := range missing {
		lines[i] = fmt.Sprintf("%d. %s", i+1, doc)
	}
	return strings.Join(lines, "\n")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
