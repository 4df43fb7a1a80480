package descriptions

// Tool descriptions with practical examples and use cases

const (
	PDFFormInfoDescription = `Summarize a PDF form: page count, title, author and whether it carries interactive fields.

**When to use:** First look at an unknown PDF before filling it, or to confirm a document really is a fillable form.

**Examples:**
• Triage an upload: "Is application.pdf a fillable form and how many pages does it have?"
• Check an encrypted form: "Open tax-return.pdf with password 'secret' and report its title"

**Common workflows:**
1. Form intake: pdf_form_info → pdf_form_fields → pdf_form_fill
2. Batch triage: pdf_server_info → pdf_form_info on each listed file

**Best practices:** Pass the password when the document is encrypted; has_form=false means there is nothing to fill.`

	PDFFormFieldsDescription = `List every fillable field of a PDF form with its type, current value, options and position.

**When to use:** Before filling a form, to learn the exact field names, allowed choice values and checkbox export values.

**Examples:**
• Discover field names: "List the fields of w9.pdf so I can fill it"
• Inspect one field: "What options does the 'country' field of visa.pdf accept?"

**Field types:** text, checkbox, radio, choice, button (push buttons), signature.

**Best practices:** Use the full_name of a field when filling; choice fields only accept one of their listed options.`

	PDFFormFillDescription = `Fill fields of a PDF form and write the result to a new file.

**When to use:** Completing a form with known values: text entries, dropdown choices, checkboxes and radio groups.

**Value rules:**
• text fields take any string
• choice fields take one of the field's options, matched exactly
• checkbox and radio fields are checked by "true", "1", "yes", "on" or the field's export value; anything else unchecks

**Examples:**
• "Fill name=Jane Doe and agree=true in consent.pdf and save it as consent-filled.pdf"
• "Set the 'size' radio group of order.pdf to checked and flatten the result"

**Best practices:** Call pdf_form_fields first. Each failed field is reported while the rest are still applied.`

	PDFFormRenderDescription = `Render one page of a PDF to a PNG image, showing the current form values.

**When to use:** Visually checking a filled form, or previewing a page before filling it.

**Examples:**
• "Render page 1 of consent-filled.pdf so I can check the values"
• "Show page 2 of order.pdf at 72 dpi"

**Best practices:** Pages are numbered from 1. Lower dpi gives smaller images; the server default is used when dpi is omitted.`

	PDFServerInfoDescription = `Get server status, available tools and the forms found in the configured directory.

**When to use:** Starting work with the form server or finding which PDF forms are available.

**Examples:**
• "What forms can you fill?"
• "Which tools does the PDF form server offer?"

**Best practices:** Run this first; directory contents are cached for a few minutes.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_form_info":   PDFFormInfoDescription,
	"pdf_form_fields": PDFFormFieldsDescription,
	"pdf_form_fill":   PDFFormFillDescription,
	"pdf_form_render": PDFFormRenderDescription,
	"pdf_server_info": PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
