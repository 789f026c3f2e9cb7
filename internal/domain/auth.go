package domain

// SubjectType differentiates viewer, admin and internal callers.
type SubjectType string

const (
	SubjectTypeUser   SubjectType = "USER"
	SubjectTypeAdmin  SubjectType = "ADMIN"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// Caller is the identity an operation runs on behalf of. It is always passed
// explicitly; a zero Caller is unauthenticated.
type Caller struct {
	Subject SubjectType
	ID      string
	Email   string
}

// SystemCaller identifies scheduled and CLI maintenance work.
func SystemCaller(name string) Caller {
	return Caller{Subject: SubjectTypeSystem, ID: name, Email: name}
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.Subject != "" && c.ID != ""
}

func (c Caller) IsAdmin() bool  { return c.Authenticated() && c.Subject == SubjectTypeAdmin }
func (c Caller) IsUser() bool   { return c.Authenticated() && c.Subject == SubjectTypeUser }
func (c Caller) IsSystem() bool { return c.Authenticated() && c.Subject == SubjectTypeSystem }
