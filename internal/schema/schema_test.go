package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

func TestNewFieldRejectsInvalidShapes(t *testing.T) {
	_, err := NewField("dept", "Department", TypeSelect, true)
	assert.Error(t, err)

	_, err = NewField("name", "Name", TypeText, true, "a", "b")
	assert.Error(t, err)

	_, err = NewField("color", "Color", FieldType("colour"), false)
	assert.Error(t, err)

	f, err := NewField("dept", "", TypeSelect, true, "Science")
	require.NoError(t, err)
	assert.Equal(t, "dept", f.Label)
	assert.Equal(t, []string{"Science"}, f.Options())
}

func TestRegistryLookupReturnsCopies(t *testing.T) {
	reg := Default()
	s, err := reg.Lookup(models.KindStudent)
	require.NoError(t, err)
	s.Columns[0].Label = "changed"

	again, err := reg.Lookup(models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, "ID", again.Columns[0].Label)
	assert.Equal(t, "students", again.ResourcePath)
}

func TestRegistryLookupUnknownKind(t *testing.T) {
	_, err := Default().Lookup(models.RecordKind("alumni"))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRegistryParseAcceptsAliases(t *testing.T) {
	reg := Default()
	for _, name := range []string{"course", "courses", "Course", " COURSES "} {
		kind, err := reg.Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, models.KindCourse, kind)
	}
	_, err := reg.Parse("dorms")
	assert.Error(t, err)
	assert.Equal(t, []models.RecordKind{models.KindStudent, models.KindCourse, models.KindInstructor, models.KindEmployee}, reg.Kinds())
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(Student(), Student())
	assert.Error(t, err)
}

func TestEncodeParsesByFieldType(t *testing.T) {
	course := Course()
	rec, err := course.Encode(map[string]string{
		"code":       " CS101 ",
		"name":       "Intro to Systems",
		"credits":    "3",
		"department": "Engineering",
	}, models.Record{"id": "c-1", "legacy": true})
	require.NoError(t, err)
	assert.Equal(t, "CS101", rec["code"])
	assert.Equal(t, float64(3), rec["credits"])
	assert.Equal(t, "c-1", rec.ID())
	assert.Equal(t, true, rec["legacy"])
	_, hasInstructor := rec["instructor"]
	assert.False(t, hasInstructor)
}

func TestEncodeCollectsParseProblems(t *testing.T) {
	_, err := Course().Encode(map[string]string{"credits": "2.5", "department": "Cooking"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Len(t, appErrors.Details(err), 2)
}

func TestNumberFieldsAcceptDecimalNotationOnly(t *testing.T) {
	for _, raw := range []string{"NaN", "+Inf", "0x1p1", "1_000", "1e3", "3."} {
		_, err := ParseDecimal(raw)
		if raw == "3." {
			assert.NoError(t, err)
			continue
		}
		assert.Error(t, err, raw)
	}

	_, err := Student().Encode(map[string]string{"gpa": "NaN"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	rec, err := Student().Encode(map[string]string{"gpa": " -0.5 "}, nil)
	require.NoError(t, err)
	assert.Equal(t, -0.5, rec["gpa"])
}

func TestFormValuesAndCells(t *testing.T) {
	s := Instructor()
	rec := models.Record{"id": float64(7), "name": "Dr. Ada", "hireDate": "2015-08-01T00:00:00Z"}

	form := s.FormValues(rec)
	assert.Equal(t, "2015-08-01", form["hireDate"])
	assert.Equal(t, "", form["email"])
	assert.Len(t, form, len(s.Fields))

	assert.Equal(t, "7", s.Cell(rec, "id"))
	assert.Equal(t, Placeholder, s.Cell(rec, "department"))
	assert.Equal(t, []string{"ID", "Name", "Email", "Department", "Specialization", "Hire Date"}, s.Headers())
}

func TestCourseCodeIsUnique(t *testing.T) {
	unique := Course().UniqueFields()
	require.Len(t, unique, 1)
	assert.Equal(t, "code", unique[0].Name)
	assert.Empty(t, Student().UniqueFields())
}
