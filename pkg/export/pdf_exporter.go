package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ContractDocument carries the fields printed on a tuition contract.
type ContractDocument struct {
	SchoolName   string
	YearName     string
	FamilyName   string
	Students     []ContractStudentLine
	Tuition      float64
	Assistance   float64
	Signatures   []ContractSignatureLine
	GeneratedAt  string
	FooterNotice string
}

// ContractStudentLine is one student row on the contract.
type ContractStudentLine struct {
	Name     string
	Decision string
}

// ContractSignatureLine records a guardian signature block.
type ContractSignatureLine struct {
	GuardianName string
	SignedAt     string
}

// RenderContract produces the printable tuition contract for a family and year.
func (e *PDFExporter) RenderContract(doc ContractDocument) ([]byte, error) {
	if doc.FamilyName == "" || doc.YearName == "" {
		return nil, fmt.Errorf("contract requires family and year names")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, doc.SchoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Tuition Contract - %s", doc.YearName), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Family: %s", doc.FamilyName), "", 1, "", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(110, 8, "Student", "1", 0, "", false, 0, "")
	pdf.CellFormat(70, 8, "Enrollment", "1", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Students {
		pdf.CellFormat(110, 7, line.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(70, 7, line.Decision, "1", 1, "", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Annual tuition: $%.2f", doc.Tuition), "", 1, "", false, 0, "")
	if doc.Assistance > 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Tuition assistance applied: $%.2f", doc.Assistance), "", 1, "", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 7, "Signatures", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, sig := range doc.Signatures {
		pdf.CellFormat(110, 7, sig.GuardianName, "B", 0, "", false, 0, "")
		pdf.CellFormat(70, 7, sig.SignedAt, "B", 1, "R", false, 0, "")
		pdf.Ln(2)
	}
	if len(doc.Signatures) == 0 {
		pdf.CellFormat(0, 7, "(unsigned)", "", 1, "", false, 0, "")
	}

	if doc.FooterNotice != "" {
		pdf.Ln(10)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, doc.FooterNotice, "", "", false)
	}
	if doc.GeneratedAt != "" {
		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s", doc.GeneratedAt), "", 1, "R", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}
