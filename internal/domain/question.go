package domain

import (
	"fmt"
	"sort"
	"time"
)

// QuestionType is the closed set of node kinds produced by the parser.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeTheory         QuestionType = "theory"
	QuestionTypeNote           QuestionType = "note"
	QuestionTypeRemark         QuestionType = "remark"
	QuestionTypeSummary        QuestionType = "summary"
	QuestionTypeExample        QuestionType = "example"
	QuestionTypeProblemType    QuestionType = "problem_type"
	QuestionTypeTitle          QuestionType = "title"
)

// IsChoice reports whether nodes of this type carry options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeTrueFalse
}

// Classification sentinels used when a block carries no valid code.
const (
	ClassificationUnclassified = "UNCLASSIFIED"
	ClassificationUnknown      = "UNKNOWN"
)

// Placeholder values of an unclassified Metadata record.
const (
	PlaceholderGrade      = "N/A"
	PlaceholderSubject    = "N/A"
	PlaceholderDifficulty = "N/A"
)

// Metadata is the decoded form of a classification code such as 1D2N3-4.
type Metadata struct {
	Code            string `json:"code"`
	GradeCode       string `json:"gradeCode"`
	Grade           string `json:"grade"`
	Subject         string `json:"subject"`
	Chapter         int    `json:"chapter"`
	Difficulty      string `json:"difficulty"`
	DifficultyLabel string `json:"difficultyLabel"`
	ProblemIndex    int    `json:"problemIndex"`
	Sequence        int    `json:"sequence"`
	Classified      bool   `json:"classified"`
}

// UnclassifiedMetadata returns the fallback record for blocks without a valid code.
func UnclassifiedMetadata() Metadata {
	return Metadata{
		Code:            ClassificationUnclassified,
		GradeCode:       "",
		Grade:           PlaceholderGrade,
		Subject:         PlaceholderSubject,
		Difficulty:      PlaceholderDifficulty,
		DifficultyLabel: "unclassified",
	}
}

// Option is one answer choice of a choice-type question.
type Option struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionNode is one graded or theory unit extracted from a document.
type QuestionNode struct {
	UniqueID         string       `json:"uniqueId"`
	ClassificationID string       `json:"classificationId"`
	Metadata         Metadata     `json:"metadata"`
	Type             QuestionType `json:"questionType"`
	Environment      string       `json:"environment"`
	Label            string       `json:"label,omitempty"`
	Content          string       `json:"content"`
	Options          []Option     `json:"options,omitempty"`
	OptionColumns    int          `json:"optionColumns,omitempty"`
	ShortAnswer      string       `json:"shortAnswer,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
	Tags             []string     `json:"tags"`
	ProblemTypeIndex int          `json:"problemTypeIndex,omitempty"`
	Offset           int          `json:"offset"`
}

// CorrectOptions returns the ids of the options marked correct.
func (q *QuestionNode) CorrectOptions() []string {
	var ids []string
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// DisplayLabel is the heading shown for problem-type nodes ("Dạng 1: ...").
func (q *QuestionNode) DisplayLabel() string {
	if q.Type != QuestionTypeProblemType || q.ProblemTypeIndex == 0 {
		return q.Label
	}
	if q.Label == "" {
		return fmt.Sprintf("Dạng %d", q.ProblemTypeIndex)
	}
	return fmt.Sprintf("Dạng %d: %s", q.ProblemTypeIndex, q.Label)
}

// Macro is one preamble declaration. Body keeps #n placeholders verbatim.
type Macro struct {
	Name string `json:"name"`
	Args int    `json:"args"`
	Body string `json:"body"`
}

// MacroTable maps a command name, backslash included, to its declaration.
type MacroTable map[string]Macro

// Expansions flattens the table into the name→body map expected by typesetters.
func (t MacroTable) Expansions() map[string]string {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]string, len(t))
	for name, m := range t {
		out[name] = m.Body
	}
	return out
}

// Names returns the declared command names in sorted order.
func (t MacroTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseWarning describes a block that could not be extracted.
type ParseWarning struct {
	Offset      int    `json:"offset"`
	Environment string `json:"environment"`
	Message     string `json:"message"`
}

// ParseResult is the output of one parse pass over a document.
type ParseResult struct {
	Title     string         `json:"title"`
	Questions []QuestionNode `json:"questions"`
	Macros    MacroTable     `json:"macros"`
	Preamble  string         `json:"preamble"`
	Warnings  []ParseWarning `json:"warnings"`
}

// Empty reports whether the document yielded no nodes. This is not an error.
func (r *ParseResult) Empty() bool {
	return r == nil || len(r.Questions) == 0
}

// FindQuestion looks a node up by its unique id.
func (r *ParseResult) FindQuestion(uniqueID string) (*QuestionNode, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Questions {
		if r.Questions[i].UniqueID == uniqueID {
			return &r.Questions[i], true
		}
	}
	return nil, false
}

// Document is a parsed source file as stored in the question bank.
// Listings load no questions, so QuestionCount is stored separately.
type Document struct {
	ID            string
	Name          string
	ContentHash   string
	Result        ParseResult
	QuestionCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDocument wraps a parse result for persistence.
func NewDocument(id, name, contentHash string, result ParseResult) *Document {
	now := time.Now()
	return &Document{
		ID:            id,
		Name:          name,
		ContentHash:   contentHash,
		Result:        result,
		QuestionCount: len(result.Questions),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate validates the document before it is saved.
func (d *Document) Validate() error {
	if d.ID == "" {
		return NewValidationError("id", "document id is required")
	}
	if d.Name == "" {
		return NewValidationError("name", "document name is required")
	}
	return nil
}
