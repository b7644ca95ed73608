// Package types provides type definitions for structured data used throughout the outreach personalizer.
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// RawLead is a single CSV row after header mapping but before validation.
// All fields are carried verbatim from the upload; Index is the zero-based
// position of the row in the original file.
type RawLead struct {
	Index          int
	FirstName      string
	LastName       string
	Email          string
	Title          string
	Company        string
	Location       string
	LinkedInURL    string
	CompanyWebsite string
}

// Lead is a validated lead ready for the personalization pipeline.
type Lead struct {
	Index          int    `json:"index"`
	FirstName      string `json:"first_name" validate:"required,min=1"`
	LastName       string `json:"last_name" validate:"required,min=1"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	Title          string `json:"title,omitempty"`
	Company        string `json:"company,omitempty"`
	Location       string `json:"location,omitempty"`
	LinkedInURL    string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	CompanyWebsite string `json:"company_website,omitempty" validate:"omitempty,url"`
}

// FullName returns the lead's display name used in logs, errors and exports.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// FullName returns the display name for an unvalidated row.
func (r RawLead) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// leadValidator is shared across calls; validator.Validate is safe for
// concurrent use.
var leadValidator = validator.New()

// ValidateLead checks struct-level constraints on a Lead.
func ValidateLead(l Lead) error {
	return leadValidator.Struct(l)
}
