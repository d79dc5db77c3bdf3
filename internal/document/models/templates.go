package models

// TemplateEntry is one line of a standard requirement template.
type TemplateEntry struct {
	Type     DocumentType
	Source   string
	Required bool
}

// standardTemplates maps a client type to its default document requirements.
// Applied at intake via the apply-standard operation; accountants adjust the
// registry afterwards.
var standardTemplates = map[string][]TemplateEntry{
	"individual": {
		{"W-2", "All Employers", true},
		{"1099-INT", "All Banks", false},
		{"1099-DIV", "All Investment Accounts", false},
		{"Prior Year Tax Return", "IRS", true},
	},
	"self_employed": {
		{"1099-NEC", "All Clients", true},
		{"1099-MISC", "All Sources", false},
		{"Business Expense Receipts", "Various", true},
		{"Prior Year Tax Return", "IRS", true},
	},
	"business": {
		{"1099-NEC", "All Contractors", true},
		{"Business Expense Receipts", "Various", true},
		{"Prior Year Tax Return", "IRS", true},
	},
}

// StandardTemplate returns the template for a client type, falling back to
// the individual template for unknown types.
func StandardTemplate(clientType string) []TemplateEntry {
	if entries, ok := standardTemplates[clientType]; ok {
		return entries
	}
	return standardTemplates["individual"]
}
