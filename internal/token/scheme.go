package token

// Scheme names the mechanism a token was collected with.
type Scheme string

// Scheme constants.
const (
	// SchemeForm is a login form submission.
	SchemeForm Scheme = "FORM"

	// SchemeBasic is HTTP Basic authentication.
	SchemeBasic Scheme = "BASIC"

	// SchemeBearer is an HTTP bearer token.
	SchemeBearer Scheme = "BEARER"
)

// String returns the scheme name.
func (s Scheme) String() string {
	return string(s)
}

// IsValid reports whether s is a known scheme.
func (s Scheme) IsValid() bool {
	switch s {
	case SchemeForm, SchemeBasic, SchemeBearer:
		return true
	default:
		return false
	}
}
