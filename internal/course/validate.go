package course

import (
	"errors"
	"fmt"
	"strings"
)

// Validate performs the structural checks on a course and returns every
// problem found in one error.
func Validate(c *Course) error {
	var errs []string

	if c.ID == "" {
		errs = append(errs, "course id is required")
	}
	if len(c.Modules) == 0 {
		errs = append(errs, fmt.Sprintf("course %q has no modules", c.ID))
	}

	moduleIDs := make(map[string]bool, len(c.Modules))
	slideIDs := make(map[string]string)
	for _, m := range c.Modules {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("course %q has a module without id", c.ID))
			continue
		}
		if moduleIDs[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module id: %q", m.ID))
		}
		moduleIDs[m.ID] = true

		if len(m.Slides) == 0 {
			errs = append(errs, fmt.Sprintf("module %q has no slides", m.ID))
		}
		for i, s := range m.Slides {
			errs = append(errs, validateSlide(m.ID, i, s)...)
			if s.ID == "" {
				continue
			}
			if other, dup := slideIDs[s.ID]; dup {
				errs = append(errs, fmt.Sprintf("slide id %q used in modules %q and %q", s.ID, other, m.ID))
			}
			slideIDs[s.ID] = m.ID
		}
	}

	for _, m := range c.Modules {
		for _, req := range m.Requires {
			if !moduleIDs[req] {
				errs = append(errs, fmt.Sprintf("module %q requires nonexistent module %q", m.ID, req))
			}
		}
	}
	if cyclic := requireCycle(c.Modules, moduleIDs); len(cyclic) > 0 {
		errs = append(errs, fmt.Sprintf("module requirements form a cycle among: %s", strings.Join(cyclic, ", ")))
	}

	if len(errs) > 0 {
		return errors.New("course validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateSlide(moduleID string, i int, s Slide) []string {
	var errs []string
	where := fmt.Sprintf("module %q slide %d", moduleID, i)
	if s.ID == "" {
		errs = append(errs, where+": id is required")
	}
	switch s.Type {
	case SlideText, SlideVideo, SlideChat, SlideDashboard:
	case SlideQuiz:
		switch {
		case s.Quiz == nil:
			errs = append(errs, where+": quiz slide needs a quiz")
		case len(s.Quiz.Options) < 2:
			errs = append(errs, where+": quiz needs at least two options")
		case s.Quiz.Answer < 0 || s.Quiz.Answer >= len(s.Quiz.Options):
			errs = append(errs, fmt.Sprintf("%s: quiz answer %d out of range", where, s.Quiz.Answer))
		}
	case SlideCaseStudy:
		if s.CaseStudy == nil || len(s.CaseStudy.Criteria) == 0 {
			errs = append(errs, where+": case study needs criteria")
		}
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown slide type %q", where, s.Type))
	}
	return errs
}

// requireCycle runs Kahn's algorithm over module requirements and returns
// the modules left on a cycle, in course order.
func requireCycle(modules []Module, known map[string]bool) []string {
	inDegree := make(map[string]int, len(modules))
	dependents := make(map[string][]string)
	for _, m := range modules {
		for _, req := range m.Requires {
			if !known[req] {
				continue
			}
			inDegree[m.ID]++
			dependents[req] = append(dependents[req], m.ID)
		}
	}

	var queue []string
	for _, m := range modules {
		if inDegree[m.ID] == 0 {
			queue = append(queue, m.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var cyclic []string
	for _, m := range modules {
		if inDegree[m.ID] > 0 {
			cyclic = append(cyclic, m.ID)
		}
	}
	return cyclic
}
