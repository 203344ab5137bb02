package dto

// Actor is the authenticated caller. Every use case runs on behalf of one
// actor and is confined to the actor's company.
type Actor struct {
	UserID    string
	CompanyID string
	Role      string
}
