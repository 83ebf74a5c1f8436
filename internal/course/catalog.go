package course

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed courses/*.yaml
var bundled embed.FS

// ErrNotFound is returned for unknown course or module ids.
var ErrNotFound = errors.New("course: not found")

// Catalog is an immutable set of courses in load order.
type Catalog struct {
	courses []*Course
	byID    map[string]*Course
}

// Load reads the bundled courses plus every *.yaml / *.yml file in dir. A
// course in dir replaces a bundled course with the same id. An empty dir
// loads only the bundled courses.
func Load(dir string) (*Catalog, error) {
	var courses []*Course

	embedded, err := fs.Glob(bundled, "courses/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, name := range embedded {
		c, err := readFile(bundled, name)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read course dir: %w", err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			c, err := readFile(os.DirFS(dir), e.Name())
			if err != nil {
				return nil, err
			}
			courses = append(courses, c)
		}
	}

	return New(courses...)
}

func readFile(fsys fs.FS, name string) (*Course, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Parse decodes and validates one course document. Unknown fields are
// rejected.
func Parse(r io.Reader) (*Course, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Course
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	for mi := range c.Modules {
		for si := range c.Modules[mi].Slides {
			if c.Modules[mi].Slides[si].Type == "" {
				c.Modules[mi].Slides[si].Type = SlideText
			}
		}
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a catalog. Later courses replace earlier ones with the same id.
func New(courses ...*Course) (*Catalog, error) {
	cat := &Catalog{byID: make(map[string]*Course, len(courses))}
	for _, c := range courses {
		if err := Validate(c); err != nil {
			return nil, err
		}
		if _, dup := cat.byID[c.ID]; dup {
			i := slices.IndexFunc(cat.courses, func(x *Course) bool { return x.ID == c.ID })
			cat.courses[i] = c
		} else {
			cat.courses = append(cat.courses, c)
		}
		cat.byID[c.ID] = c
	}

	// Remote progress rows are keyed by module id alone.
	owner := make(map[string]string)
	for _, co := range cat.courses {
		for _, m := range co.Modules {
			if other, ok := owner[m.ID]; ok {
				return nil, fmt.Errorf("module id %q used by courses %q and %q", m.ID, other, co.ID)
			}
			owner[m.ID] = co.ID
		}
	}
	return cat, nil
}

// Courses returns all courses in load order.
func (c *Catalog) Courses() []*Course {
	return slices.Clone(c.courses)
}

func (c *Catalog) Course(id string) (*Course, error) {
	if co, ok := c.byID[id]; ok {
		return co, nil
	}
	return nil, fmt.Errorf("%w: course %q", ErrNotFound, id)
}

func (c *Catalog) Module(courseID, moduleID string) (*Course, *Module, error) {
	co, err := c.Course(courseID)
	if err != nil {
		return nil, nil, err
	}
	m, ok := co.Module(moduleID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: module %q in course %q", ErrNotFound, moduleID, courseID)
	}
	return co, m, nil
}

// SlideTotals maps every module id of a course to its slide count.
func (c *Course) SlideTotals() map[string]int {
	out := make(map[string]int, len(c.Modules))
	for _, m := range c.Modules {
		out[m.ID] = len(m.Slides)
	}
	return out
}
