package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// QuestionTypeCoding is evaluated against test cases by the judge.
	QuestionTypeCoding = "coding"
	// QuestionTypeMCQ is scored by the selected option.
	QuestionTypeMCQ = "mcq"
)

// Question is a contest item. Coding questions carry test cases, MCQ questions carry options.
type Question struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	ContestID   string             `gorm:"type:varchar(36);index;not null" json:"contest_id"`
	Title       string             `gorm:"size:255;not null" json:"title"`
	Description string             `gorm:"type:text" json:"description"`
	Type        string             `gorm:"column:question_type;size:16;not null" json:"type"`
	Points      int                `gorm:"default:0" json:"points"`
	ImageURL    string             `gorm:"size:512" json:"image_url"`
	Position    int                `gorm:"default:0" json:"position"`
	CreatedAt   time.Time          `json:"created_at"`
	Examples    []Example          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"examples,omitempty"`
	Constraints []Constraint       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"constraints,omitempty"`
	TestCases   []TestCase         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
	Options     []MCQOption        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options,omitempty"`
	Templates   []LanguageTemplate `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"templates,omitempty"`
}

// IsCoding reports whether the question is judged by test cases.
func (q Question) IsCoding() bool {
	return q.Type == QuestionTypeCoding
}

// IsMCQ reports whether the question is a multiple choice item.
func (q Question) IsMCQ() bool {
	return q.Type == QuestionTypeMCQ
}

// VisibleTestCases returns the cases shown to participants during a run, in order.
func (q Question) VisibleTestCases() []TestCase {
	visible := make([]TestCase, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		if tc.Visible {
			visible = append(visible, tc)
		}
	}
	return visible
}

// HiddenTestCaseCount returns the number of cases evaluated only on submit.
func (q Question) HiddenTestCaseCount() int {
	count := 0
	for _, tc := range q.TestCases {
		if !tc.Visible {
			count++
		}
	}
	return count
}

// Option looks up an MCQ option by id.
func (q Question) Option(id string) (MCQOption, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return MCQOption{}, false
}

// Template returns the starter code for a language, if the question defines one.
func (q Question) Template(languageID int) (string, bool) {
	for _, tpl := range q.Templates {
		if tpl.LanguageID == languageID {
			return tpl.Template, true
		}
	}
	return "", false
}

// Example is a display-only worked example.
type Example struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	QuestionID  uint   `gorm:"index;not null" json:"question_id"`
	Input       string `gorm:"type:text" json:"input"`
	Output      string `gorm:"type:text" json:"output"`
	Explanation string `gorm:"type:text" json:"explanation"`
	Position    int    `gorm:"default:0" json:"position"`
}

// Constraint is a display-only constraint line.
type Constraint struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	QuestionID  uint   `gorm:"index;not null" json:"question_id"`
	Description string `gorm:"type:text" json:"description"`
	Position    int    `gorm:"default:0" json:"position"`
}

// TestCase is one judged input/expected output pair.
type TestCase struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Input      string `gorm:"type:text" json:"input"`
	Expected   string `gorm:"type:text" json:"expected"`
	Points     int    `gorm:"not null;default:0" json:"points"`
	Visible    bool   `gorm:"default:false" json:"visible"`
	Position   int    `gorm:"default:0" json:"position"`
}

// MCQOption is a selectable answer of an MCQ question.
type MCQOption struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Text       string `gorm:"column:option_text;type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
}

// TableName keeps the option table name stable.
func (MCQOption) TableName() string {
	return "mcq_options"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (o *MCQOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// LanguageTemplate is the starter code offered for one language.
type LanguageTemplate struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	LanguageID int    `gorm:"not null" json:"language_id"`
	Name       string `gorm:"size:64" json:"name"`
	Template   string `gorm:"type:text" json:"template"`
}
