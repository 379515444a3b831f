// Package candidate holds the data threaded through a candidate-application run.
package candidate

import "strings"

// WorkExperience is one entry of a resume's work history. Every field is optional.
type WorkExperience struct {
	Company     *string `json:"company" yaml:"company"`
	Role        *string `json:"role" yaml:"role"`
	StartDate   *string `json:"start_date" yaml:"start_date"`
	EndDate     *string `json:"end_date" yaml:"end_date"`
	Description *string `json:"description" yaml:"description"`
}

// Profile is the structured form of a resume. Absent scalars are nil and
// absent lists are empty; no key is ever dropped when serialized.
type Profile struct {
	FullName         *string          `json:"full_name" yaml:"full_name"`
	Email            *string          `json:"email" yaml:"email"`
	Phone            *string          `json:"phone" yaml:"phone"`
	Location         *string          `json:"location" yaml:"location"`
	LinkedIn         *string          `json:"linkedin" yaml:"linkedin"`
	YearsExperience  *int             `json:"years_experience" yaml:"years_experience"`
	Skills           []string         `json:"skills" yaml:"skills"`
	HighestEducation *string          `json:"highest_education" yaml:"highest_education"`
	WorkExperience   []WorkExperience `json:"work_experience" yaml:"work_experience"`
	Certifications   []string         `json:"certifications" yaml:"certifications"`
	Languages        []string         `json:"languages" yaml:"languages"`
	Summary          *string          `json:"summary" yaml:"summary"`
}

// Normalize blanks out whitespace-only scalars, replaces nil lists with empty
// ones and standardizes skills. Work experience order is kept as given.
func (p *Profile) Normalize() {
	p.FullName = nullable(p.FullName)
	p.Email = nullable(p.Email)
	p.Phone = nullable(p.Phone)
	p.Location = nullable(p.Location)
	p.LinkedIn = nullable(p.LinkedIn)
	p.HighestEducation = nullable(p.HighestEducation)
	p.Summary = nullable(p.Summary)

	p.Skills = NormalizeSkills(p.Skills)
	p.Certifications = compact(p.Certifications)
	p.Languages = compact(p.Languages)

	if p.WorkExperience == nil {
		p.WorkExperience = []WorkExperience{}
	}
	for i := range p.WorkExperience {
		we := &p.WorkExperience[i]
		we.Company = nullable(we.Company)
		we.Role = nullable(we.Role)
		we.StartDate = nullable(we.StartDate)
		we.EndDate = nullable(we.EndDate)
		we.Description = nullable(we.Description)
	}
}

// Name returns the extracted full name or an empty string.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	return Value(p.FullName)
}

// ContactEmail returns the extracted email or an empty string.
func (p *Profile) ContactEmail() string {
	if p == nil {
		return ""
	}
	return Value(p.Email)
}

// Value dereferences s, treating nil as empty.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s, or nil when s is blank.
func Ptr(s string) *string {
	return nullable(&s)
}

func nullable(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
