package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRecords(t *testing.T) {
	form := StaticPracticeForm()
	assert.Equal(t, "John Doe", form.FullName())
	assert.Equal(t, "06 Jan 1990", form.DateOfBirth)
	assert.Contains(t, CitiesByState[form.State], form.City)

	rec := NewRecord()
	assert.Equal(t, []string{"John", "Doe", "30", "john.doe@example.com", "50000", "Engineering"}, rec.Cells())
	assert.Equal(t, "Jane", StaticWebTableRecord().FirstName)
	assert.Equal(t, 35, UpdatedRecord().Age)
}

func TestRecords(t *testing.T) {
	recs := Records(12)
	require.Len(t, recs, 12)
	assert.Equal(t, WebTableRecord{
		FirstName: "User1", LastName: "Test1", Email: "user1@example.com",
		Age: 21, Salary: 31000, Department: "Department1",
	}, recs[0])
	assert.Equal(t, "user12@example.com", recs[11].Email)
	assert.Equal(t, 42000, recs[11].Salary)

	assert.Empty(t, Records(0))
	assert.Empty(t, Records(-3))
}
