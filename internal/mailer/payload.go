// Package mailer delivers module summary e-mails: the client posts a
// Payload to the summary endpoint, and the endpoint renders and sends it.
package mailer

import (
	"errors"
	"strings"

	"github.com/abhisek/learnloop/internal/skills"
)

// SendPath is the fixed path of the summary endpoint.
const SendPath = "/send-module-summary"

var (
	// ErrInvalidPayload is returned for payloads missing required fields.
	ErrInvalidPayload = errors.New("mailer: invalid payload")

	// ErrDispatchFailed is returned when the endpoint rejects a payload.
	ErrDispatchFailed = errors.New("mailer: dispatch failed")
)

// Payload is the JSON body of a module summary request.
type Payload struct {
	UserID       string              `json:"userId"`
	UserEmail    string              `json:"userEmail"`
	ModuleID     string              `json:"moduleId"`
	ModuleTitle  string              `json:"moduleTitle"`
	CourseTitle  string              `json:"courseTitle"`
	Slide        int                 `json:"slide"`
	AverageScore *float64            `json:"averageScore,omitempty"`
	Skills       []skills.SkillScore `json:"skills,omitempty"`
	QuizScore    *float64            `json:"quizScore,omitempty"`
	UserName     string              `json:"userName,omitempty"`
}

// Validate checks the fields the endpoint cannot do without.
func (p Payload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.UserEmail) == "" {
		missing = append(missing, "userEmail")
	}
	if p.ModuleID == "" {
		missing = append(missing, "moduleId")
	}
	if len(missing) > 0 {
		return errors.Join(ErrInvalidPayload, errors.New("missing "+strings.Join(missing, ", ")))
	}
	return nil
}

// Result is the endpoint's JSON answer.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
