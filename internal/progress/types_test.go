package progress

import "testing"

func TestModulePercent(t *testing.T) {
	tests := []struct {
		name  string
		index int
		total int
		want  int
	}{
		{"first of four", 0, 4, 25},
		{"second of four", 1, 4, 50},
		{"third of four", 2, 4, 75},
		{"last of four", 3, 4, 100},
		{"first of three floors", 0, 3, 33},
		{"second of three floors", 1, 3, 66},
		{"single slide", 0, 1, 100},
		{"float floor matches clients", 28, 100, 28},
		{"capped below last", 198, 200, 99},
		{"penultimate of hundred", 98, 100, 99},
		{"negative clamps to first", -5, 4, 25},
		{"past end clamps to last", 14, 4, 100},
		{"no slides", 2, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModulePercent(tt.index, tt.total); got != tt.want {
				t.Errorf("ModulePercent(%d, %d) = %d, want %d", tt.index, tt.total, got, tt.want)
			}
		})
	}
}

func TestModulePercentMonotonicAndCompleteOnlyAtEnd(t *testing.T) {
	for total := 1; total <= 250; total++ {
		prev := -1
		for idx := 0; idx < total; idx++ {
			got := ModulePercent(idx, total)
			if got < prev {
				t.Fatalf("total=%d idx=%d: %d < previous %d", total, idx, got, prev)
			}
			if (got == 100) != (idx == total-1) {
				t.Fatalf("total=%d idx=%d: percent %d, 100 must mean last slide", total, idx, got)
			}
			prev = got
		}
	}
}

func TestCoursePercent(t *testing.T) {
	tests := []struct {
		name    string
		modules []int
		want    int
	}{
		{"none", nil, 0},
		{"single", []int{75}, 75},
		{"rounds half up", []int{25, 66}, 46},
		{"rounds down", []int{33, 33, 34}, 33},
		{"all complete", []int{100, 100}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ms []ModuleProgress
			for i, p := range tt.modules {
				ms = append(ms, ModuleProgress{ModuleID: string(rune('a' + i)), Progress: p})
			}
			if got := CoursePercent(ms); got != tt.want {
				t.Errorf("CoursePercent(%v) = %d, want %d", tt.modules, got, tt.want)
			}
		})
	}
}
