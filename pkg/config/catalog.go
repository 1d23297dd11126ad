package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionCount is the fixed number of rated questions per feedback entry.
const QuestionCount = 10

// Combo pairs a teacher with the subject they teach.
type Combo struct {
	Teacher string `yaml:"teacher" json:"teacher"`
	Subject string `yaml:"subject" json:"subject"`
}

// AcademicPeriod is stamped on every feedback entry.
type AcademicPeriod struct {
	Semester int    `yaml:"semester" json:"semester"`
	Session  string `yaml:"session" json:"session"`
	Branch   string `yaml:"branch" json:"branch"`
}

type catalogFile struct {
	Teachers  []string       `yaml:"teachers"`
	Subjects  []string       `yaml:"subjects"`
	Combos    []Combo        `yaml:"teacher_subject_combos"`
	Questions []string       `yaml:"questions"`
	Period    AcademicPeriod `yaml:"academic_period"`
}

// Catalog is the survey definition loaded once at start-up. It is read-only
// after construction; accessors return copies.
type Catalog struct {
	teachers  []string
	subjects  []string
	combos    []Combo
	questions []string
	period    AcademicPeriod

	teacherSet map[string]struct{}
	subjectSet map[string]struct{}
	comboSet   map[Combo]struct{}
}

var defaultCatalog = catalogFile{
	Combos: []Combo{
		{Teacher: "Dr. Sharma", Subject: "Mathematics"},
		{Teacher: "Prof. Gupta", Subject: "Physics"},
		{Teacher: "Dr. Patel", Subject: "Chemistry"},
	},
	Questions: []string{
		"Clarity of explanation",
		"Subject knowledge",
		"Teaching pace",
		"Student engagement",
		"Doubt handling",
		"Use of examples",
		"Classroom interaction",
		"Fairness in evaluation",
		"Availability outside class",
		"Overall effectiveness",
	},
	Period: AcademicPeriod{Semester: 1, Session: "2024-28", Branch: "CSE"},
}

// LoadCatalog reads the YAML catalog at path. An empty path yields the
// built-in default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return NewCatalog(defaultCatalog.Teachers, defaultCatalog.Subjects, defaultCatalog.Combos, defaultCatalog.Questions, defaultCatalog.Period)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read survey catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode survey catalog: %w", err)
	}
	if len(file.Questions) == 0 {
		file.Questions = defaultCatalog.Questions
	}
	if file.Period == (AcademicPeriod{}) {
		file.Period = defaultCatalog.Period
	}
	return NewCatalog(file.Teachers, file.Subjects, file.Combos, file.Questions, file.Period)
}

// NewCatalog validates and indexes a catalog. Teachers and subjects named
// only in combos are added to the allow-lists.
func NewCatalog(teachers, subjects []string, combos []Combo, questions []string, period AcademicPeriod) (*Catalog, error) {
	c := &Catalog{
		period:     period,
		teacherSet: make(map[string]struct{}),
		subjectSet: make(map[string]struct{}),
		comboSet:   make(map[Combo]struct{}),
	}

	for _, t := range teachers {
		c.addTeacher(t)
	}
	for _, s := range subjects {
		c.addSubject(s)
	}
	for _, combo := range combos {
		combo.Teacher = strings.TrimSpace(combo.Teacher)
		combo.Subject = strings.TrimSpace(combo.Subject)
		if combo.Teacher == "" || combo.Subject == "" {
			return nil, errors.New("survey catalog: combo requires teacher and subject")
		}
		if _, dup := c.comboSet[combo]; dup {
			continue
		}
		c.comboSet[combo] = struct{}{}
		c.combos = append(c.combos, combo)
		c.addTeacher(combo.Teacher)
		c.addSubject(combo.Subject)
	}

	if len(c.teachers) == 0 {
		return nil, errors.New("survey catalog: no teachers configured")
	}
	if len(c.subjects) == 0 {
		return nil, errors.New("survey catalog: no subjects configured")
	}
	if len(questions) != QuestionCount {
		return nil, fmt.Errorf("survey catalog: expected %d questions, got %d", QuestionCount, len(questions))
	}
	c.questions = append([]string(nil), questions...)

	return c, nil
}

func (c *Catalog) addTeacher(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := c.teacherSet[name]; ok {
		return
	}
	c.teacherSet[name] = struct{}{}
	c.teachers = append(c.teachers, name)
}

func (c *Catalog) addSubject(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := c.subjectSet[name]; ok {
		return
	}
	c.subjectSet[name] = struct{}{}
	c.subjects = append(c.subjects, name)
}

// Teachers returns the teacher allow-list in declaration order.
func (c *Catalog) Teachers() []string { return append([]string(nil), c.teachers...) }

// Subjects returns the subject allow-list in declaration order.
func (c *Catalog) Subjects() []string { return append([]string(nil), c.subjects...) }

// Combos returns the configured teacher/subject pairs.
func (c *Catalog) Combos() []Combo { return append([]Combo(nil), c.combos...) }

// Questions returns the ten question prompts.
func (c *Catalog) Questions() []string { return append([]string(nil), c.questions...) }

// Period returns the academic period stamp.
func (c *Catalog) Period() AcademicPeriod { return c.period }

// HasTeacher reports whether name is in the teacher allow-list.
func (c *Catalog) HasTeacher(name string) bool {
	_, ok := c.teacherSet[name]
	return ok
}

// HasSubject reports whether name is in the subject allow-list.
func (c *Catalog) HasSubject(name string) bool {
	_, ok := c.subjectSet[name]
	return ok
}

// AllowsPair reports whether teacher/subject may be rated together. Without
// configured combos any listed teacher may be paired with any listed subject.
func (c *Catalog) AllowsPair(teacher, subject string) bool {
	if len(c.combos) == 0 {
		return c.HasTeacher(teacher) && c.HasSubject(subject)
	}
	_, ok := c.comboSet[Combo{Teacher: teacher, Subject: subject}]
	return ok
}
