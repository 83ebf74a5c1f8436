// Package progress holds the learner's course and module progress. State
// lives in memory, is written optimistically to the device cache and is
// mirrored to the remote store in the background.
package progress

import (
	"math"
)

// ModuleProgress is one module's progress inside a course.
type ModuleProgress struct {
	ModuleID    string  `json:"moduleId"`
	Progress    int     `json:"progress"`
	LastSlideID *string `json:"lastSlideId,omitempty"`
	TotalSlides *int    `json:"totalSlides,omitempty"`
}

// CourseProgressSummary is a course and its modules. Progress is derived
// from Modules whenever the course has any.
type CourseProgressSummary struct {
	CourseID    string           `json:"courseId"`
	Progress    int              `json:"progress"`
	LastSlideID *string          `json:"lastSlideId,omitempty"`
	Modules     []ModuleProgress `json:"modules"`
}

// ModulePercent converts a slide position into a module percent. The index
// is clamped into the module; only the final slide yields 100.
func ModulePercent(currentSlideIndex, totalSlides int) int {
	if totalSlides <= 0 {
		return 0
	}
	idx := clamp(currentSlideIndex, 0, totalSlides-1)
	if idx == totalSlides-1 {
		return 100
	}
	// Float arithmetic keeps results identical to existing clients, e.g.
	// 29/100*100 floors to 28.
	base := int(math.Floor(float64(idx+1) / float64(totalSlides) * 100))
	return min(base, 99)
}

// CoursePercent is the rounded mean of the module percents, 0 for none.
func CoursePercent(modules []ModuleProgress) int {
	if len(modules) == 0 {
		return 0
	}
	sum := 0
	for _, m := range modules {
		sum += m.Progress
	}
	return int(math.Round(float64(sum) / float64(len(modules))))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func (c CourseProgressSummary) clone() CourseProgressSummary {
	out := c
	out.LastSlideID = cloneString(c.LastSlideID)
	out.Modules = make([]ModuleProgress, len(c.Modules))
	for i, m := range c.Modules {
		out.Modules[i] = ModuleProgress{
			ModuleID:    m.ModuleID,
			Progress:    m.Progress,
			LastSlideID: cloneString(m.LastSlideID),
			TotalSlides: cloneInt(m.TotalSlides),
		}
	}
	return out
}

func cloneCourses(in []CourseProgressSummary) []CourseProgressSummary {
	out := make([]CourseProgressSummary, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}
