package player

import (
	"github.com/abhisek/learnloop/internal/screens/summary"
	"github.com/abhisek/learnloop/internal/tutor"
)

// chatLoadedMsg carries the stored conversation of the course.
type chatLoadedMsg struct {
	Turns []tutor.Turn
	Err   error
}

// chatReplyMsg is sent when the tutor answered (or failed to answer).
type chatReplyMsg struct {
	Question string
	Reply    tutor.Reply
	Err      error
}

// evaluatedMsg is sent when a case-study answer has been scored.
type evaluatedMsg struct {
	SlideID    string
	Evaluation tutor.Evaluation
	Err        error
}

// summaryLoadedMsg carries the dashboard data of the module.
type summaryLoadedMsg struct {
	Data summary.Data
}
