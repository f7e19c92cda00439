package schema

import "github.com/noah-isme/sma-records-console/internal/models"

// Departments offered by the institution.
var Departments = []string{"Science", "Engineering", "Mathematics", "Humanities", "Arts", "Business"}

// Positions available to non-teaching staff.
var Positions = []string{"Administrator", "Accountant", "Librarian", "Counselor", "Technician", "Registrar"}

// Student describes enrolled students.
func Student() Schema {
	return Schema{
		Kind:         models.KindStudent,
		ResourcePath: "students",
		EntityLabel:  "Student",
		Columns: []ColumnSpec{
			{Key: "id", Label: "ID"},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "department", Label: "Department"},
			{Key: "gpa", Label: "GPA"},
			{Key: "enrollmentDate", Label: "Enrollment Date"},
		},
		Fields: []FieldSpec{
			MustField("name", "Full Name", TypeText, true),
			MustField("email", "Email", TypeEmail, true),
			MustField("phone", "Phone", TypeTel, true),
			MustField("department", "Department", TypeSelect, true, Departments...),
			MustField("gpa", "GPA", TypeNumber, true),
			MustField("enrollmentDate", "Enrollment Date", TypeDate, true),
		},
	}
}

// Course describes the course catalogue.
func Course() Schema {
	return Schema{
		Kind:         models.KindCourse,
		ResourcePath: "courses",
		EntityLabel:  "Course",
		Columns: []ColumnSpec{
			{Key: "id", Label: "ID"},
			{Key: "code", Label: "Code"},
			{Key: "name", Label: "Course Name"},
			{Key: "credits", Label: "Credits"},
			{Key: "department", Label: "Department"},
			{Key: "instructor", Label: "Instructor"},
		},
		Fields: []FieldSpec{
			MustField("code", "Course Code", TypeText, true).AsUnique(),
			MustField("name", "Course Name", TypeText, true),
			MustField("credits", "Credit Hours", TypeNumber, true).WholeNumber(),
			MustField("department", "Department", TypeSelect, true, Departments...),
			MustField("instructor", "Instructor", TypeText, true),
		},
	}
}

// Instructor describes teaching staff.
func Instructor() Schema {
	return Schema{
		Kind:         models.KindInstructor,
		ResourcePath: "instructors",
		EntityLabel:  "Instructor",
		Columns: []ColumnSpec{
			{Key: "id", Label: "ID"},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "department", Label: "Department"},
			{Key: "specialization", Label: "Specialization"},
			{Key: "hireDate", Label: "Hire Date"},
		},
		Fields: []FieldSpec{
			MustField("name", "Full Name", TypeText, true),
			MustField("email", "Email", TypeEmail, true),
			MustField("phone", "Phone", TypeTel, true),
			MustField("department", "Department", TypeSelect, true, Departments...),
			MustField("specialization", "Specialization", TypeText, true),
			MustField("hireDate", "Hire Date", TypeDate, true),
		},
	}
}

// Employee describes non-teaching staff.
func Employee() Schema {
	return Schema{
		Kind:         models.KindEmployee,
		ResourcePath: "employees",
		EntityLabel:  "Employee",
		Columns: []ColumnSpec{
			{Key: "id", Label: "ID"},
			{Key: "name", Label: "Name"},
			{Key: "email", Label: "Email"},
			{Key: "position", Label: "Position"},
			{Key: "department", Label: "Department"},
			{Key: "hireDate", Label: "Hire Date"},
		},
		Fields: []FieldSpec{
			MustField("name", "Full Name", TypeText, true),
			MustField("email", "Email", TypeEmail, true),
			MustField("phone", "Phone", TypeTel, true),
			MustField("position", "Position", TypeSelect, true, Positions...),
			MustField("department", "Department", TypeSelect, true, Departments...),
			MustField("hireDate", "Hire Date", TypeDate, true),
		},
	}
}
