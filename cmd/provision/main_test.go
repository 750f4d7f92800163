package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsut-attendance/backend/pkg/attendance"
	"github.com/nsut-attendance/backend/pkg/department"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSeed(t *testing.T) {
	path := writeSeed(t, `{
		"students": [{"roll_number": "2021UCS001", "name": "Bob", "email": "bob@dept.test", "password": "password123"}],
		"teachers": [{"name": "Dr. Rao", "email": "rao@dept.test", "password": "password123", "department": "CSE"}],
		"subjects": [{"subject_code": "CS302", "subject_name": "Databases", "semester": 5, "credits": 4}],
		"assignments": [{"subject_code": "CS302", "teacher_email": "rao@dept.test"}]
	}`)

	seed, err := loadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Students, 1)
	assert.Equal(t, "2021UCS001", seed.Students[0].RollNumber)
	assert.Equal(t, "CS302", seed.Assignments[0].SubjectCode)
}

func TestLoadSeedRejectsInvalid(t *testing.T) {
	_, err := loadSeed(writeSeed(t, `{"students": [{"roll_number": "2021UCS001", "name": "Bob", "email": "not-an-email", "password": "short"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)

	_, err = loadSeed(writeSeed(t, `{"students": [`))
	assert.Error(t, err)

	_, err = loadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEmptySections(t *testing.T) {
	seed, err := loadSeed(writeSeed(t, `{
		"subjects": [{"subject_code": "CS302", "subject_name": "Databases", "semester": 5, "credits": 4}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "teachers", "assignments"}, emptySections(seed))

	assert.Equal(t, []string{"students", "teachers", "subjects", "assignments"}, emptySections(department.Seed{}))
}
