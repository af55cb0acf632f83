package domain

import "math/big"

// Curve holds the bonding-curve points a token was created with.
type Curve struct {
	ID        string // token address
	Token     string
	Points    []*big.Int
	UpdatedAt int64
}

// Clone returns a deep copy of c.
func (c *Curve) Clone() *Curve {
	cp := *c
	cp.Points = make([]*big.Int, len(c.Points))
	for i, p := range c.Points {
		cp.Points[i] = cloneInt(p)
	}
	return &cp
}

// Insider marks a user as an insider of a token from AddedAt until RemovedAt.
type Insider struct {
	ID        string // token-user
	Token     string
	User      string
	AddedAt   int64
	RemovedAt *int64
}

// Clone returns a deep copy of i.
func (i *Insider) Clone() *Insider {
	c := *i
	if i.RemovedAt != nil {
		v := *i.RemovedAt
		c.RemovedAt = &v
	}
	return &c
}
