package export

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/opencurricula/courseminer/internal/course"
)

// WritePDF renders a printable course catalog: one heading block per course
// with its metadata line and description. Layout is intentionally simple.
func WritePDF(path string, courses []course.Course) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Course Catalog", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(2)

	for _, c := range courses {
		title := c.CourseName
		if c.CourseCode != "" && c.CourseCode != course.Placeholder {
			title = fmt.Sprintf("%s (%s)", c.CourseName, c.CourseCode)
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")

		meta := make([]string, 0, 4)
		for _, part := range []struct{ label, val string }{
			{"Category", c.Category},
			{"Grades", c.GradeLevel},
			{"Length", c.Length},
			{"Credit", c.Credit},
			{"Prerequisite", c.Prerequisite},
		} {
			if part.val != "" && part.val != course.Placeholder {
				meta = append(meta, part.label+": "+part.val)
			}
		}
		pdf.SetFont("Helvetica", "I", 10)
		if len(meta) > 0 {
			pdf.MultiCell(0, 5, strings.Join(meta, "  |  "), "", "L", false)
		}
		pdf.SetFont("Helvetica", "", 11)
		if c.CourseDescription != "" && c.CourseDescription != course.Placeholder {
			pdf.MultiCell(0, 5, c.CourseDescription, "", "L", false)
		}
		pdf.Ln(4)
	}

	return pdf.OutputFileAndClose(path)
}
