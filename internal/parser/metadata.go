package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"quiz-tex/internal/domain"
)

// codePattern is the classification-code grammar:
// grade digit, subject letter, chapter, difficulty letter, problem index, -sequence.
var codePattern = regexp.MustCompile(`^([0-9])([A-Z])([0-9]+)([A-Z])([0-9]+)-([0-9]+)$`)

// gradeByCode maps the grade digit to a school grade. Unlisted digits are
// reported as-is.
var gradeByCode = map[string]string{
	"1": "6",
	"2": "7",
	"3": "8",
	"4": "9",
	"5": "10",
	"6": "11",
	"7": "12",
}

// DifficultyLabels maps difficulty letters to readable levels.
var DifficultyLabels = map[string]string{
	"N": "recognition",
	"H": "comprehension",
	"V": "application",
	"C": "advanced application",
}

// IsCode reports whether s matches the classification-code grammar exactly.
func IsCode(s string) bool {
	return codePattern.MatchString(s)
}

// DecodeCode decodes a classification code. ok is false when code does not
// match the grammar; the returned metadata is then the unclassified record.
func DecodeCode(code string) (domain.Metadata, bool) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return domain.UnclassifiedMetadata(), false
	}
	chapter, err1 := strconv.Atoi(m[3])
	problem, err2 := strconv.Atoi(m[5])
	sequence, err3 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || err3 != nil {
		// digit runs too long for int
		return domain.UnclassifiedMetadata(), false
	}
	grade, found := gradeByCode[m[1]]
	if !found {
		grade = m[1]
	}
	label, found := DifficultyLabels[m[4]]
	if !found {
		label = "other"
	}
	return domain.Metadata{
		Code:            code,
		GradeCode:       m[1],
		Grade:           grade,
		Subject:         m[2],
		Chapter:         chapter,
		Difficulty:      m[4],
		DifficultyLabel: label,
		ProblemIndex:    problem,
		Sequence:        sequence,
		Classified:      true,
	}, true
}

// EncodeCode rebuilds a classification code from decoded fields.
func EncodeCode(m domain.Metadata) string {
	return fmt.Sprintf("%s%s%d%s%d-%d", m.GradeCode, m.Subject, m.Chapter, m.Difficulty, m.ProblemIndex, m.Sequence)
}
