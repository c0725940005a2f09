// api/schemas/session.go
package schemas

import "regexp"

// -- Study Session Schemas --
// These mirror the DTOs of the session service.

// SessionStatus is the lifecycle state of a study session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionStale     SessionStatus = "stale"
	SessionAbandoned SessionStatus = "abandoned"
)

// PartIOrder is the permutation of documents assigned to a participant.
type PartIOrder string

var partIOrderPattern = regexp.MustCompile(`^(ABC|ACB|BAC|BCA|CAB|CBA)$`)

// IsValid reports whether the order is one of the six permutations of ABC.
func (o PartIOrder) IsValid() bool {
	return partIOrderPattern.MatchString(string(o))
}

// Letters splits the order into its document letters.
func (o PartIOrder) Letters() []DocLetter {
	out := make([]DocLetter, 0, len(o))
	for _, r := range string(o) {
		out = append(out, DocLetter(r))
	}
	return out
}

// DocLetter identifies one of the three study documents.
type DocLetter string

const (
	DocA DocLetter = "A"
	DocB DocLetter = "B"
	DocC DocLetter = "C"
)

// IsValid reports whether d names a known document.
func (d DocLetter) IsValid() bool {
	return d == DocA || d == DocB || d == DocC
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	ID          string        `json:"id"`
	SessionCode string        `json:"sessionCode"`
	Status      SessionStatus `json:"status"`
	CreatedAt   string        `json:"createdAt"`
}

// Session is the full session record.
type Session struct {
	ID               string        `json:"id"`
	SessionCode      string        `json:"sessionCode"`
	Status           SessionStatus `json:"status"`
	PartIOrder       *PartIOrder   `json:"partIOrder"`
	PartIIPattern    *string       `json:"partIIPattern"`
	CreatedAt        string        `json:"createdAt"`
	UpdatedAt        string        `json:"updatedAt"`
	OrdersAssignedAt *string       `json:"ordersAssignedAt"`
}

// StartSessionResponse is returned by POST /sessions/start, which creates a session
// and assigns its orders atomically.
type StartSessionResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	PartIOrder    string `json:"partIOrder"`
	PartIIPattern string `json:"partIIPattern"`
}
