package database

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMode controls bcrypt cost for password hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost (10) for secure password hashing.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	PasswordModeTesting
)

// Cost returns the bcrypt cost for this mode.
// Panics if PasswordModeTesting is used outside of a test environment.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		// Go passes -test.* flags when running under go test
		for _, arg := range os.Args {
			if len(arg) > 6 && arg[:6] == "-test." {
				log.Println("WARNING: Using insecure password hashing (testing mode)")
				return bcrypt.MinCost
			}
		}
		panic("database: PasswordModeTesting used outside of test environment")
	default:
		return bcrypt.DefaultCost
	}
}
