package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/sma-records-console/internal/schema"
)

var (
	emailShape  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)
	courseCode  = regexp.MustCompile(`^[A-Z]{2,4}\d{3}$`)
	phoneStrip  = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
	digitsOnly  = regexp.MustCompile(`^\d+$`)
	hireFloor   = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	minNameLen  = 3
	minTitleLen = 5
)

func (p *Pipeline) studentRules() []Rule {
	return []Rule{
		RequiredText("name", "Name", minNameLen),
		p.Email("email", "Email"),
		Phone("phone", "Phone"),
		OneOf("department", "Department", schema.Departments),
		NumberRange("gpa", "GPA", 0, 4, false, "GPA must be between 0.0 and 4.0"),
		Date("enrollmentDate", "Enrollment date", true, time.Time{}),
	}
}

func (p *Pipeline) courseRules() []Rule {
	return []Rule{
		CourseCode("code", "Course code"),
		RequiredText("name", "Course name", minTitleLen),
		NumberRange("credits", "Credit hours", 1, 6, true, "Credit hours must be between 1 and 6"),
		OneOf("department", "Department", schema.Departments),
		RequiredText("instructor", "Instructor", minNameLen),
	}
}

func (p *Pipeline) instructorRules() []Rule {
	return []Rule{
		RequiredText("name", "Name", minNameLen),
		p.Email("email", "Email"),
		Phone("phone", "Phone"),
		OneOf("department", "Department", schema.Departments),
		RequiredText("specialization", "Specialization", minNameLen),
		Date("hireDate", "Hire date", true, hireFloor),
	}
}

func (p *Pipeline) employeeRules() []Rule {
	return []Rule{
		RequiredText("name", "Name", minNameLen),
		p.Email("email", "Email"),
		Phone("phone", "Phone"),
		OneOf("position", "Position", schema.Positions),
		OneOf("department", "Department", schema.Departments),
		Date("hireDate", "Hire date", true, hireFloor),
	}
}

// RequiredText demands a non-empty value of at least min characters.
func RequiredText(field, label string, min int) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		if len([]rune(v)) < min {
			c.Failf("%s must be at least %d characters", label, min)
		}
	}
}

// Email checks the address shape and flags non-institutional domains.
func (p *Pipeline) Email(field, label string) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		if !emailShape.MatchString(v) || p.validate.Var(v, "email") != nil {
			c.Failf("%s must be a valid email address", label)
			return
		}
		domain := strings.ToLower(v[strings.LastIndex(v, "@")+1:])
		for _, suffix := range p.domains {
			if strings.HasSuffix(domain, suffix) {
				return
			}
		}
		c.Advisef("%s %s is not an institutional address", label, v)
	}
}

// Phone accepts 10 to 15 digits once common separators are removed.
func Phone(field, label string) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		digits := strings.TrimPrefix(phoneStrip.Replace(v), "+")
		if !digitsOnly.MatchString(digits) || len(digits) < 10 || len(digits) > 15 {
			c.Failf("%s must contain 10 to 15 digits", label)
		}
	}
}

// NumberRange demands a number within [min, max].
func NumberRange(field, label string, min, max float64, integer bool, outOfRange string) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		n, err := schema.ParseDecimal(v)
		if err != nil {
			c.Failf("%s must be a number", label)
			return
		}
		if integer && n != float64(int64(n)) {
			c.Failf("%s must be a whole number", label)
			return
		}
		if n < min || n > max {
			c.Failf("%s", outOfRange)
		}
	}
}

// Date demands a YYYY-MM-DD date, optionally not in the future and not before floor.
func Date(field, label string, notFuture bool, floor time.Time) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		d, err := time.Parse(schema.DateLayout, v)
		if err != nil {
			c.Failf("%s must be a valid date (YYYY-MM-DD)", label)
			return
		}
		now := c.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if notFuture && d.After(today) {
			c.Failf("%s cannot be in the future", label)
			return
		}
		if !floor.IsZero() && d.Before(floor) {
			c.Failf("%s is too old (before %s)", label, floor.Format(schema.DateLayout))
		}
	}
}

// OneOf demands a value drawn from options.
func OneOf(field, label string, options []string) Rule {
	return func(c *Check) {
		v := c.Value(field)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		for _, opt := range options {
			if opt == v {
				return
			}
		}
		c.Failf("%s must be one of: %s", label, strings.Join(options, ", "))
	}
}

// CourseCode upper-cases the value and demands 2-4 letters followed by 3 digits.
func CourseCode(field, label string) Rule {
	return func(c *Check) {
		v := strings.ToUpper(c.Value(field))
		c.Set(field, v)
		if v == "" {
			c.Failf("%s is required", label)
			return
		}
		if !courseCode.MatchString(v) {
			c.Failf("%s must be 2-4 letters followed by 3 digits (e.g. CS101)", label)
		}
	}
}
