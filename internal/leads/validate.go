package leads

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Validate normalizes one raw row into a Lead and returns human-readable
// violation messages when the row is invalid. A row with any violation is
// excluded from the fetch/generate steps but still produces an error outcome
// so job progress advances.
func Validate(raw types.RawLead) (types.Lead, []string) {
	lead := types.Lead{
		Index:          raw.Index,
		FirstName:      strings.TrimSpace(raw.FirstName),
		LastName:       strings.TrimSpace(raw.LastName),
		Email:          strings.TrimSpace(raw.Email),
		Title:          strings.TrimSpace(raw.Title),
		Company:        strings.TrimSpace(raw.Company),
		Location:       strings.TrimSpace(raw.Location),
		LinkedInURL:    strings.TrimSpace(raw.LinkedInURL),
		CompanyWebsite: strings.TrimSpace(raw.CompanyWebsite),
	}

	var violations []string
	failed := make(map[string]bool)

	if err := types.ValidateLead(lead); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				failed[fe.StructField()] = true
				violations = append(violations, violationMessage(fe, lead))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	// The struct tags accept any URL scheme; fetching only supports
	// absolute http(s) URLs, so narrow the fields the tags passed.
	if !failed["LinkedInURL"] {
		if msg := checkAbsoluteURL("linkedin url", lead.LinkedInURL); msg != "" {
			violations = append(violations, msg)
		}
	}
	if !failed["CompanyWebsite"] {
		if msg := checkAbsoluteURL("company website", lead.CompanyWebsite); msg != "" {
			violations = append(violations, msg)
		}
	}

	return lead, violations
}

// violationMessage translates one tag failure into the message shown in
// error outcomes and the export's error column.
func violationMessage(fe validator.FieldError, lead types.Lead) string {
	switch fe.StructField() {
	case "FirstName":
		return "first name is required"
	case "LastName":
		return "last name is required"
	case "Email":
		return fmt.Sprintf("email %q is not a valid address", lead.Email)
	case "LinkedInURL":
		return fmt.Sprintf("linkedin url %q is not an absolute http(s) URL", lead.LinkedInURL)
	case "CompanyWebsite":
		return fmt.Sprintf("company website %q is not an absolute http(s) URL", lead.CompanyWebsite)
	default:
		return fmt.Sprintf("%s is invalid", fe.StructField())
	}
}

// checkAbsoluteURL returns a violation message unless value is empty or an
// absolute http(s) URL.
func checkAbsoluteURL(field, value string) string {
	if value == "" {
		return ""
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Sprintf("%s %q is not an absolute http(s) URL", field, value)
	}
	return ""
}
