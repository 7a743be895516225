package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xavierca1/salespilot/internal/entity"
)

const footer = "This proposal is valid for 30 days. Reply to this email to accept or to schedule a follow-up call."

// ProposalRenderer lays out the one-page project proposal.
type ProposalRenderer struct {
	Company string
	printer *message.Printer
}

func NewProposalRenderer(company string) *ProposalRenderer {
	if company == "" {
		company = "SalesPilot"
	}
	return &ProposalRenderer{Company: company, printer: message.NewPrinter(language.English)}
}

// FormatAmount renders a budget with thousands separators: 75000 -> "75,000".
func (r *ProposalRenderer) FormatAmount(amount int64) string {
	return r.printer.Sprintf("%d", amount)
}

func (r *ProposalRenderer) Render(lead *entity.Lead, issuedAt time.Time) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	// Uncompressed content streams keep the text searchable.
	doc.SetCompression(false)
	doc.SetCreationDate(issuedAt)
	doc.SetTitle("Project Proposal", true)
	doc.SetAuthor(r.Company, true)
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	// Core fonts are cp1252; client-supplied text arrives as UTF-8.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(0, 12, "Project Proposal", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 7, "Date: "+issuedAt.Format("January 2, 2006"), "", 1, "R", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, "Prepared for:", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 6, tr(lead.Name), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr(lead.Email), "", 1, "L", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 7, "Subject: Proposal for "+tr(lead.ServiceType), "", 1, "L", false, 0, "")
	doc.Ln(4)

	amount := r.FormatAmount(lead.Budget)

	doc.SetFillColor(230, 230, 230)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(120, 8, "Description", "1", 0, "L", true, 0, "")
	doc.CellFormat(50, 8, "Amount", "1", 1, "R", true, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(120, 8, tr(lead.ServiceType), "1", 0, "L", false, 0, "")
	doc.CellFormat(50, 8, amount, "1", 1, "R", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(170, 8, "Total: "+amount, "", 1, "R", false, 0, "")
	doc.Ln(10)

	doc.SetFont("Helvetica", "I", 9)
	doc.MultiCell(0, 5, footer, "", "L", false)
	doc.Ln(2)
	doc.CellFormat(0, 5, tr(r.Company), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render proposal pdf: %w", err)
	}
	return buf.Bytes(), nil
}
