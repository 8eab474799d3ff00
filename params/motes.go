package params

// These are the multipliers for motes denominations.
// Example: to get the motes value of an amount in 'tokens', use
//
//	new(big.Int).Mul(value, big.NewInt(params.Token))
const (
	Motes  = 1
	KMotes = 1e3
	Token  = 1e18
)
