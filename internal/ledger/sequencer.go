package ledger

// Token numbers are what the kitchen shouts out. They roll over at 999
// and restart at 1, so they are only unique among the orders currently
// on the counter, never globally.
const maxToken = 999

func nextTokenNumber(last int) int {
	if last < 1 {
		return 1
	}
	return (last % maxToken) + 1
}
