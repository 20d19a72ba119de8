package model

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// Column names must match migrations/*/000001_init.up.sql.
func TestParticipantColumnNames(t *testing.T) {
	sch, err := schema.Parse(&Participant{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("schema.Parse failed: %v", err)
	}
	for field, column := range map[string]string{
		"ZIP":              "zip",
		"DOB":              "dob",
		"SchoolOrEmployer": "school_or_employer",
		"FieldOfInterest":  "field_of_interest",
		"TotalDonations":   "total_donations",
	} {
		f := sch.LookUpField(field)
		if f == nil {
			t.Errorf("no field %s", field)
			continue
		}
		if f.DBName != column {
			t.Errorf("%s maps to column %q, want %q", field, f.DBName, column)
		}
	}
}
