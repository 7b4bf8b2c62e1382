// Package fixtures provides the records the suite types into demoqa forms.
package fixtures

import "fmt"

// PracticeForm is one submission of the student registration form.
type PracticeForm struct {
	FirstName   string
	LastName    string
	Email       string
	Mobile      string
	Address     string
	DateOfBirth string // "06 Jan 1990"
	Gender      string // Male, Female or Other
	Hobbies     []string
	Subjects    []string
	State       string
	City        string
}

// FullName is how the form's confirmation dialog shows the student name.
func (p PracticeForm) FullName() string {
	return p.FirstName + " " + p.LastName
}

// WebTableRecord is one row of the web tables page.
type WebTableRecord struct {
	FirstName  string
	LastName   string
	Email      string
	Age        int
	Salary     int
	Department string
}

// Cells returns the record in the column order of the table.
func (r WebTableRecord) Cells() []string {
	return []string{r.FirstName, r.LastName, fmt.Sprint(r.Age), r.Email, fmt.Sprint(r.Salary), r.Department}
}

// StaticPracticeForm is the fixed submission used when no random data is wanted.
func StaticPracticeForm() PracticeForm {
	return PracticeForm{
		FirstName:   "John",
		LastName:    "Doe",
		Email:       "johndoe@example.com",
		Mobile:      "1234567890",
		Address:     "123 Main St, Springfield",
		DateOfBirth: "06 Jan 1990",
		Gender:      "Male",
		Hobbies:     []string{"Sports"},
		Subjects:    []string{"Maths"},
		State:       "NCR",
		City:        "Delhi",
	}
}

// StaticWebTableRecord is the reference record of the data set.
func StaticWebTableRecord() WebTableRecord {
	return WebTableRecord{
		FirstName:  "Jane",
		LastName:   "Smith",
		Email:      "janesmith@example.com",
		Age:        29,
		Salary:     50000,
		Department: "Engineering",
	}
}

// NewRecord is the record the CRUD scenarios add.
func NewRecord() WebTableRecord {
	return WebTableRecord{
		FirstName:  "John",
		LastName:   "Doe",
		Email:      "john.doe@example.com",
		Age:        30,
		Salary:     50000,
		Department: "Engineering",
	}
}

// UpdatedRecord replaces NewRecord when the last row is edited.
func UpdatedRecord() WebTableRecord {
	return WebTableRecord{
		FirstName:  "UpdatedFirst",
		LastName:   "UpdatedLast",
		Email:      "updated.email@example.com",
		Age:        35,
		Salary:     60000,
		Department: "UpdatedDepartment",
	}
}

// Records returns n numbered records: User1/Test1/user1@example.com/21/31000/Department1 and so on.
func Records(n int) []WebTableRecord {
	out := make([]WebTableRecord, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		out = append(out, WebTableRecord{
			FirstName:  fmt.Sprintf("User%d", i),
			LastName:   fmt.Sprintf("Test%d", i),
			Email:      fmt.Sprintf("user%d@example.com", i),
			Age:        20 + i,
			Salary:     30000 + i*1000,
			Department: fmt.Sprintf("Department%d", i),
		})
	}
	return out
}
