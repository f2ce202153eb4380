package inmemdb

import (
	"sync"

	"github.com/trezcool/studybuddy/core/notes"
	"github.com/trezcool/studybuddy/core/user"
)

type (
	// DB keeps the credential and document stores in process memory.
	DB struct {
		user    *userTable
		profile *profileTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	profileTable struct {
		mutex sync.RWMutex
		table map[string]notes.UserProfile
	}
)

func NewDB() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		profile: &profileTable{table: make(map[string]notes.UserProfile)},
	}
}
