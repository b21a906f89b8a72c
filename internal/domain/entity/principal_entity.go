package entity

// Principal is the authenticated caller of a request, resolved from a bearer token.
type Principal struct {
	ID      int64
	Name    string
	Email   string
	TokenID string
}
