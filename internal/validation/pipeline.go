package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// Result is the outcome of validating one candidate record.
type Result struct {
	IsValid bool
	Errors  []string
	// Advisories are shown to the user but never block a write.
	Advisories []string
	// Values holds the trimmed and normalized form values.
	Values map[string]string
}

// Err converts an invalid result into a VALIDATION_ERROR carrying every violation.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrValidation, r.Errors)
}

// Func validates raw form values of one record kind.
type Func func(values map[string]string) Result

// Rule inspects the candidate values and records violations.
type Rule func(c *Check)

// Options tune the pipeline.
type Options struct {
	// Now is the evaluation clock for date rules. Defaults to time.Now.
	Now func() time.Time
	// InstitutionalDomains are email suffixes that do not raise an advisory.
	InstitutionalDomains []string
}

// Pipeline builds the per-kind validation functions.
type Pipeline struct {
	validate *validator.Validate
	now      func() time.Time
	domains  []string
	logger   *zap.Logger
}

// NewPipeline constructs a validation pipeline.
func NewPipeline(validate *validator.Validate, opts Options, logger *zap.Logger) *Pipeline {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	domains := make([]string, 0, len(opts.InstitutionalDomains))
	for _, d := range opts.InstitutionalDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		domains = []string{".edu"}
	}
	return &Pipeline{validate: validate, now: opts.Now, domains: domains, logger: logger}
}

// For returns the validation function of kind.
func (p *Pipeline) For(kind models.RecordKind) (Func, error) {
	rules, err := p.rules(kind)
	if err != nil {
		return nil, err
	}
	return func(values map[string]string) Result {
		return p.run(kind, rules, values)
	}, nil
}

// Validate runs the rules of kind against values.
func (p *Pipeline) Validate(kind models.RecordKind, values map[string]string) (Result, error) {
	fn, err := p.For(kind)
	if err != nil {
		return Result{}, err
	}
	return fn(values), nil
}

func (p *Pipeline) run(kind models.RecordKind, rules []Rule, values map[string]string) Result {
	c := &Check{
		now:    p.now(),
		values: make(map[string]string, len(values)),
	}
	for k, v := range values {
		c.values[k] = strings.TrimSpace(v)
	}
	for _, rule := range rules {
		rule(c)
	}
	res := Result{
		IsValid:    len(c.errors) == 0,
		Errors:     c.errors,
		Advisories: c.advisories,
		Values:     c.values,
	}
	if !res.IsValid {
		p.logger.Debug("record rejected", zap.String("kind", string(kind)), zap.Strings("errors", res.Errors))
	}
	return res
}

func (p *Pipeline) rules(kind models.RecordKind) ([]Rule, error) {
	switch kind {
	case models.KindStudent:
		return p.studentRules(), nil
	case models.KindCourse:
		return p.courseRules(), nil
	case models.KindInstructor:
		return p.instructorRules(), nil
	case models.KindEmployee:
		return p.employeeRules(), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no validation rules for %q", kind))
	}
}

// Check is the mutable state rules operate on.
type Check struct {
	now        time.Time
	values     map[string]string
	errors     []string
	advisories []string
}

// Value returns the trimmed value of field.
func (c *Check) Value(field string) string {
	return c.values[field]
}

// Set replaces the normalized value of field.
func (c *Check) Set(field, value string) {
	c.values[field] = value
}

// Failf records a blocking violation.
func (c *Check) Failf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// Advisef records a non-blocking advisory.
func (c *Check) Advisef(format string, args ...interface{}) {
	c.advisories = append(c.advisories, fmt.Sprintf(format, args...))
}

// Now is the evaluation time of the run.
func (c *Check) Now() time.Time {
	return c.now
}
