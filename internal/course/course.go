package course

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Course is one extracted curriculum record. All fields are free text as
// reported by the model; SourceFile is provenance set by the caller, never
// model-supplied.
type Course struct {
	Category          string `json:"category"`
	CourseName        string `json:"courseName"`
	CourseCode        string `json:"courseCode"`
	GradeLevel        string `json:"gradeLevel"`
	Length            string `json:"length"`
	Prerequisite      string `json:"prerequisite"`
	Credit            string `json:"credit"`
	CourseDescription string `json:"courseDescription"`
	SourceFile        string `json:"sourceFile"`
}

// Placeholder fills optional fields that the model left empty so exports
// never show blank cells.
const Placeholder = "-"

// MinNameLen is the minimum CourseName length in characters after cleaning;
// shorter records are dropped.
const MinNameLen = 2

// stripControls removes ASCII control characters including DEL.
var stripControls = runes.Remove(runes.Predicate(func(r rune) bool {
	return r < 0x20 || r == 0x7f
}))

// Key returns the dedup key used when merging cached and freshly extracted
// records: lower-cased trimmed name plus the source identifier.
func (c Course) Key() string {
	return strings.ToLower(strings.TrimSpace(c.CourseName)) + "|" + strings.ToLower(strings.TrimSpace(c.SourceFile))
}

// Clean coerces a loosely-typed parsed object into a Course and normalizes
// every field. It returns ok=false when the record has no usable course name
// after cleaning; such records are dropped, not errored.
func Clean(raw map[string]any, sourceFile string) (Course, bool) {
	fields := map[string]string{}
	for k, v := range raw {
		name := canonicalKey(k)
		if name == "" {
			continue
		}
		s := coerceString(v)
		if s == "" {
			continue
		}
		// First alias wins per canonical field.
		if _, ok := fields[name]; !ok {
			fields[name] = s
		}
	}

	name := cleanField(fields["coursename"])
	name = strings.Map(func(r rune) rune {
		// Quotes and backslashes corrupt delimited exports downstream.
		if r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
	name = collapse(name)
	if utf8.RuneCountInString(name) < MinNameLen {
		return Course{}, false
	}

	c := Course{
		Category:          orPlaceholder(cleanField(fields["category"])),
		CourseName:        name,
		CourseCode:        orPlaceholder(cleanField(fields["coursecode"])),
		GradeLevel:        orPlaceholder(cleanField(fields["gradelevel"])),
		Length:            orPlaceholder(cleanField(fields["length"])),
		Prerequisite:      orPlaceholder(cleanField(fields["prerequisite"])),
		Credit:            orPlaceholder(cleanField(fields["credit"])),
		CourseDescription: orPlaceholder(cleanField(fields["coursedescription"])),
		SourceFile:        strings.TrimSpace(sourceFile),
	}
	return c, true
}

// cleanField trims, strips control characters, and collapses whitespace runs.
func cleanField(s string) string {
	out, _, err := transform.String(stripControls, s)
	if err != nil {
		out = s
	}
	return collapse(out)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// canonicalKey maps the many spellings models use for the same field onto
// one canonical name. Unknown keys map to the empty string and are ignored.
func canonicalKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	switch b.String() {
	case "category", "department", "subjectarea":
		return "category"
	case "coursename", "coursetitle", "course", "title", "name", "subjectname":
		return "coursename"
	case "coursecode", "code", "courseid", "subjectcode":
		return "coursecode"
	case "gradelevel", "grade", "grades", "gradelevels":
		return "gradelevel"
	case "length", "duration", "term":
		return "length"
	case "prerequisite", "prerequisites", "prereq", "prereqs":
		return "prerequisite"
	case "credit", "credits", "creditvalue":
		return "credit"
	case "coursedescription", "description", "desc", "summary":
		return "coursedescription"
	}
	return ""
}

// coerceString renders the JSON value kinds that plausibly carry a field
// value; anything else is dropped rather than stringified blindly.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
