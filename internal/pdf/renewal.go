// internal/pdf/renewal.go
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/permitdesk/licensing-backend/internal/models"
)

const (
	pageWidth   = 210.0
	margin      = 20.0
	bodyWidth   = pageWidth - 2*margin
	lineHeight  = 6.0
	titleHeight = 10.0
	dateLayout  = "02/01/2006"
	issuerTitle = "Wildlife Licensing"
)

// LicenceRenewal renders the renewal notice for a single licence. Holder
// and Profile.PostalAddress should be loaded.
func LicenceRenewal(licence *models.WildlifeLicence, siteURL string) ([]byte, error) {
	doc := newDocument(fmt.Sprintf("%s renewal notice", licence.Reference()))
	addRenewalPage(doc, licence, siteURL)
	return output(doc)
}

// BulkLicenceRenewal renders a cover page followed by one renewal notice
// per licence.
func BulkLicenceRenewal(licences []models.WildlifeLicence, siteURL string) ([]byte, error) {
	return output(bulkDocument(licences, siteURL, time.Now()))
}

func bulkDocument(licences []models.WildlifeLicence, siteURL string, now time.Time) *fpdf.Fpdf {
	doc := newDocument("Bulk renewal notices")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	heading(doc, "Licence renewal notices")
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(bodyWidth, lineHeight, tr(fmt.Sprintf("Generated %s.", now.Format(dateLayout))), "", "L", false)
	doc.Ln(lineHeight)
	if len(licences) == 0 {
		doc.MultiCell(bodyWidth, lineHeight, "No licences matched the selection.", "", "L", false)
	} else {
		doc.MultiCell(bodyWidth, lineHeight, fmt.Sprintf("%d renewal notice(s) follow.", len(licences)), "", "L", false)
		doc.Ln(lineHeight / 2)
		for i := range licences {
			doc.CellFormat(bodyWidth, lineHeight, tr(summaryLine(&licences[i])), "", 1, "L", false, 0, "")
		}
	}

	for i := range licences {
		addRenewalPage(doc, &licences[i], siteURL)
	}
	return doc
}

func newDocument(title string) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle(title, true)
	doc.SetAuthor(issuerTitle, true)
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	return doc
}

func addRenewalPage(doc *fpdf.Fpdf, licence *models.WildlifeLicence, siteURL string) {
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()
	heading(doc, "Licence renewal notice")

	doc.SetFont("Helvetica", "", 11)
	for _, line := range addressBlock(licence) {
		doc.CellFormat(bodyWidth, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	doc.Ln(lineHeight)

	rows := [][2]string{
		{"Licence", licence.Reference()},
		{"Licence type", licence.LicenceType},
		{"Expiry date", formatDate(licence.EndDate)},
	}
	if licence.Purpose != "" {
		rows = append(rows, [2]string{"Purpose", licence.Purpose})
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(40, lineHeight, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(bodyWidth-40, lineHeight, tr(row[1]), "", "L", false)
	}
	doc.Ln(lineHeight)

	body := fmt.Sprintf(
		"Dear %s,\n\nYour licence %s is due to expire on %s. To continue the activities it authorises, "+
			"please lodge a renewal application online before that date at %s.\n\n"+
			"If you no longer require the licence no action is needed.",
		holderName(licence), licence.Reference(), formatDate(licence.EndDate), siteURL,
	)
	doc.MultiCell(bodyWidth, lineHeight, tr(body), "", "L", false)
	doc.Ln(lineHeight * 2)
	doc.MultiCell(bodyWidth, lineHeight, issuerTitle, "", "L", false)
}

func heading(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(bodyWidth, titleHeight, title, "B", 1, "L", false, 0, "")
	doc.Ln(lineHeight)
}

func addressBlock(licence *models.WildlifeLicence) []string {
	lines := []string{holderName(licence)}
	if licence.Profile == nil {
		return lines
	}
	if licence.Profile.Institution != "" {
		lines = append(lines, licence.Profile.Institution)
	}
	addr := licence.Profile.PostalAddress
	for _, l := range []string{addr.Line1, addr.Line2, addr.Line3} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	locality := strings.TrimSpace(strings.Join([]string{addr.Locality, addr.State, addr.Postcode}, " "))
	if locality != "" {
		lines = append(lines, locality)
	}
	return lines
}

func summaryLine(licence *models.WildlifeLicence) string {
	return fmt.Sprintf("%s  %s  expires %s", licence.Reference(), holderName(licence), formatDate(licence.EndDate))
}

func holderName(licence *models.WildlifeLicence) string {
	if licence.Holder != nil {
		return licence.Holder.FullName()
	}
	if licence.Profile != nil {
		return licence.Profile.Name
	}
	return "Licence holder"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
