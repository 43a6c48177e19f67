package inmemdb

import (
	"sync"

	"github.com/fnelms/backend/core/assessment"
	"github.com/fnelms/backend/core/enrollment"
)

type (
	DB struct {
		assessment *assessmentTables
		enrollment *enrollmentTables
	}

	assessmentTables struct {
		sync.RWMutex
		instances map[string]*assessment.Instance
		snapshots map[string]*assessment.TemplateSnapshot
		responses map[string][]assessment.IndicatorResponse // by instance ID
		results   map[string]*assessment.InstanceSummary    // by instance ID
	}

	enrollmentTables struct {
		sync.RWMutex
		courses     map[string]*enrollment.CourseStructure
		events      []enrollment.ProgressEvent
		enrollments map[string]*enrollment.EnrollmentSummary // by userID + "/" + courseID
	}
)

func Open() (*DB, error) {
	db := &DB{
		assessment: &assessmentTables{
			instances: make(map[string]*assessment.Instance),
			snapshots: make(map[string]*assessment.TemplateSnapshot),
			responses: make(map[string][]assessment.IndicatorResponse),
			results:   make(map[string]*assessment.InstanceSummary),
		},
		enrollment: &enrollmentTables{
			courses:     make(map[string]*enrollment.CourseStructure),
			enrollments: make(map[string]*enrollment.EnrollmentSummary),
		},
	}
	return db, nil
}
