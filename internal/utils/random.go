package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/gearguard/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonFirstNames = []string{
	"Aarav", "Ananya", "Arjun", "Diya", "Ishaan", "Kavya", "Rohan", "Priya",
	"James", "Emma", "Liam", "Olivia", "Noah", "Sophia", "Mia", "Lucas",
}

var commonLastNames = []string{
	"Sharma", "Patel", "Verma", "Iyer", "Reddy", "Mehta", "Khan", "Nair",
	"Smith", "Johnson", "Brown", "Garcia", "Miller", "Davis", "Wilson", "Moore",
}

var genders = []domain.Gender{
	domain.GenderMale,
	domain.GenderFemale,
	domain.GenderOther,
}

var departments = []string{
	"Maintenance", "Operations", "Engineering", "Quality", "Logistics",
}

var designations = []string{
	"Technician", "Supervisor", "Engineer", "Manager", "Analyst",
}

func GenerateRandomEmail(firstName, lastName, emailDomainName string) string {
	return fmt.Sprintf("%s.%s%d@%s",
		strings.ToLower(firstName),
		strings.ToLower(lastName),
		rand.Intn(1000),
		emailDomainName,
	)
}

// GenerateRandomUser builds a plausible user record for dev seeding. The
// username mirrors the email, same as signup does.
func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	firstName := commonFirstNames[rand.Intn(len(commonFirstNames))]
	lastName := commonLastNames[rand.Intn(len(commonLastNames))]
	email := GenerateRandomEmail(firstName, lastName, emailDomainName)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	age := int32(rand.Intn(40) + 21)
	gender := genders[rand.Intn(len(genders))]
	designation := designations[rand.Intn(len(designations))]
	department := departments[rand.Intn(len(departments))]

	user := &domain.User{
		Email:        email,
		Username:     email,
		PasswordHash: string(passwordHash),
		FirstName:    firstName,
		LastName:     lastName,
		Age:          &age,
		Gender:       &gender,
		Designation:  &designation,
		Department:   &department,
		IsActive:     true,
	}

	return user, nil
}
