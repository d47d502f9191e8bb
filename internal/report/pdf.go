package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// PDFSurface draws onto an fpdf document with Times 10pt text and manual
// page breaks.
type PDFSurface struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDFSurface starts a portrait document on paper ("Letter", "A4", ...)
// with its first page added.
func NewPDFSurface(paper, title string) *PDFSurface {
	if paper == "" {
		paper = "Letter"
	}
	pdf := fpdf.New("P", "mm", paper, "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("MinistryX", true)
	pdf.SetFont("Times", "", 10)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	return &PDFSurface{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (p *PDFSurface) WriteAt(x, y float64, text string) {
	p.pdf.Text(x, y, p.tr(text))
}

func (p *PDFSurface) AddPage() {
	p.pdf.AddPage()
}

func (p *PDFSurface) PageCount() int {
	return p.pdf.PageCount()
}

// Output writes the finished document to w.
func (p *PDFSurface) Output(w io.Writer) error {
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("PDF output error: %w", err)
	}
	return nil
}
