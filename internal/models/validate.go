package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var employeeCodePattern = regexp.MustCompile(`^EMP(\d+)$`)

// ValidationErrors maps a form field name to the message shown next to it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

type EmployeeInput struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

func (in EmployeeInput) Normalize() EmployeeInput {
	return EmployeeInput{
		EmployeeID: strings.ToUpper(strings.TrimSpace(in.EmployeeID)),
		FullName:   strings.TrimSpace(in.FullName),
		Email:      strings.TrimSpace(in.Email),
		Department: strings.TrimSpace(in.Department),
	}
}

// Validate checks field presence and email shape. It returns nil when the
// input can be sent.
func (in EmployeeInput) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(in.FullName) == "" {
		errs["full_name"] = "Full name is required"
	}
	email := strings.TrimSpace(in.Email)
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Invalid email format"
	}
	if strings.TrimSpace(in.Department) == "" {
		errs["department"] = "Department is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NextEmployeeCode returns EMPnnn one past the highest EMP-numbered code in
// the list, or EMP001 when there is none.
func NextEmployeeCode(existing []Employee) string {
	highest := 0
	for _, emp := range existing {
		match := employeeCodePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(emp.EmployeeID)))
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("EMP%03d", highest+1)
}
