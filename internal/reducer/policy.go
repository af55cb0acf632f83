package reducer

import "fmt"

// HolderPolicy selects who receives the initial supply when a token is created.
type HolderPolicy string

const (
	// HolderPolicyCreator credits the full supply to the creator.
	HolderPolicyCreator HolderPolicy = "creator"
	// HolderPolicyToken credits the full supply to the token contract itself.
	HolderPolicyToken HolderPolicy = "token"
	// HolderPolicyNone creates no initial holder.
	HolderPolicyNone HolderPolicy = "none"
)

// ParseHolderPolicy parses a policy name. The empty string selects HolderPolicyCreator.
func ParseHolderPolicy(s string) (HolderPolicy, error) {
	switch p := HolderPolicy(s); p {
	case "":
		return HolderPolicyCreator, nil
	case HolderPolicyCreator, HolderPolicyToken, HolderPolicyNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown holder policy %q", s)
}
