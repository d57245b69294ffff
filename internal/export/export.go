// Package export writes the final course list in the formats the
// surrounding tooling consumes: JSON for machines, XLSX for registrars,
// PDF for printable catalogs.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/opencurricula/courseminer/internal/course"
)

// Sheet is the worksheet name used in XLSX exports.
const Sheet = "Courses"

var header = []string{
	"Category", "Course Name", "Course Code", "Grade Level",
	"Length", "Prerequisite", "Credit", "Description", "Source File",
}

func row(c course.Course) []any {
	return []any{
		c.Category, c.CourseName, c.CourseCode, c.GradeLevel,
		c.Length, c.Prerequisite, c.Credit, c.CourseDescription, c.SourceFile,
	}
}

// WriteJSON writes the canonical JSON output.
func WriteJSON(path string, courses []course.Course) error {
	b, err := json.MarshalIndent(courses, "", "  ")
	if err != nil {
		return fmt.Errorf("encode courses: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// WriteXLSX writes one worksheet with a header row and one row per course.
func WriteXLSX(path string, courses []course.Course) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(Sheet, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range courses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row(c)
		if err := f.SetSheetRow(Sheet, cell, &r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}
