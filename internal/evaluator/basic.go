package evaluator

// BasicStrategy is the simplified hit/stand chart used to grade decisions:
// stand on 17+, hit on 11 or less, stand on 13-16 against a dealer 2-6,
// stand on 12 against 4-6, hit otherwise. It returns true for hit.
func BasicStrategy(total, dealerUp int) bool {
	switch {
	case total >= 17:
		return false
	case total <= 11:
		return true
	case total >= 13 && dealerUp <= 6:
		return false
	case total == 12 && dealerUp >= 4 && dealerUp <= 6:
		return false
	default:
		return true
	}
}
