package skills

import "unicode/utf8"

// Dedupe collapses records that share an identity into one entry.
//
// Merging is a pairwise running average: each new observation is averaged
// against the already-merged score, so with three or more observations later
// ones weigh more. Stored scores depend on this exact behavior; DedupeExact
// computes the true mean instead.
//
// Output holds merged entries in first-seen order followed by records whose
// identity is empty, in their original order.
func Dedupe(records []SkillScore) []SkillScore {
	var (
		merged  []SkillScore
		index   = make(map[string]int)
		unkeyed []SkillScore
	)

	for _, rec := range records {
		id := Identity(rec)
		if id == "" {
			unkeyed = append(unkeyed, clone(rec))
			continue
		}
		i, ok := index[id]
		if !ok {
			index[id] = len(merged)
			merged = append(merged, clone(rec))
			continue
		}
		merged[i] = mergePair(merged[i], rec)
	}

	return append(merged, unkeyed...)
}

// DedupeExact groups records like Dedupe but scores each group with the
// arithmetic mean of all its observations, rounded once.
func DedupeExact(records []SkillScore) []SkillScore {
	type acc struct {
		sum   float64
		count int
	}
	var (
		merged  []SkillScore
		sums    []acc
		index   = make(map[string]int)
		unkeyed []SkillScore
	)

	for _, rec := range records {
		id := Identity(rec)
		if id == "" {
			unkeyed = append(unkeyed, clone(rec))
			continue
		}
		i, ok := index[id]
		if !ok {
			index[id] = len(merged)
			merged = append(merged, clone(rec))
			sums = append(sums, acc{sum: rec.Score, count: 1})
			continue
		}
		m := mergePair(merged[i], rec)
		sums[i].sum += rec.Score
		sums[i].count++
		m.Score = round1(sums[i].sum / float64(sums[i].count))
		merged[i] = m
	}

	return append(merged, unkeyed...)
}

// Average returns the mean score of records, rounded to one decimal.
// ok is false for an empty input.
func Average(records []SkillScore) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range records {
		sum += r.Score
	}
	return NormalizeScore(sum / float64(len(records)))
}

func mergePair(a, b SkillScore) SkillScore {
	out := a
	if utf8.RuneCountInString(b.Name) > utf8.RuneCountInString(a.Name) {
		out.Name = b.Name
	}
	if out.Key == "" {
		out.Key = b.Key
	}
	out.Score = round1((a.Score + b.Score) / 2)
	out.IndividualScores = union(a.IndividualScores, b.IndividualScores)
	return out
}

func union(a, b []float64) []float64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[float64]bool, len(a)+len(b))
	out := make([]float64, 0, len(a)+len(b))
	for _, list := range [][]float64{a, b} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func clone(s SkillScore) SkillScore {
	if s.IndividualScores != nil {
		s.IndividualScores = append([]float64(nil), s.IndividualScores...)
	}
	return s
}
