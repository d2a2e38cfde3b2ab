package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/school"
)

// DB is a mutex-guarded in-memory store. One lock covers all tables so
// cross-table checks (dependents, references) see a consistent view.
type DB struct {
	mutex sync.RWMutex

	accounts    map[int]*account.Account
	courses     map[int]*school.Course
	students    map[int]*school.Student
	enrollments map[int]*school.Enrollment
	activities  map[int]*school.Activity

	accountPK    int
	coursePK     int
	studentPK    int
	enrollmentPK int
	activityPK   int
}

func Open() *DB {
	return &DB{
		accounts:    make(map[int]*account.Account),
		courses:     make(map[int]*school.Course),
		students:    make(map[int]*school.Student),
		enrollments: make(map[int]*school.Enrollment),
		activities:  make(map[int]*school.Activity),
	}
}
