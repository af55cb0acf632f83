package domain

// User is an account that created, traded or held a token.
type User struct {
	ID                 string // lower-case account address
	IsInsider          bool
	TotalTokensCreated int64
	TotalTrades        int64
}

// Clone returns a copy of u.
func (u *User) Clone() *User {
	c := *u
	return &c
}
