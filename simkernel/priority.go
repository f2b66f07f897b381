package simkernel

// priorityBand assigns each destination state to a tie-breaking band.
// The exact band numbers are not part of the contract (see the design
// notes on the source's priority table); only the relative ordering of
// the classes is: draining a one-lane road takes precedence over travel
// completions, which take precedence over service completions, which
// precede light-approach decisions, which precede WAITING/LEAVING_SHOVEL
// handoffs, which precede APPROACHING_SHOVEL/APPROACHING_CRUSHER arrivals.
func priorityBand(dest TruckLocation) int {
	switch dest {
	case StoppedAtTLCS, StoppedAtTLSS:
		return 0
	case TravelToShovel, TravelToCrusher:
		return 1
	case WaitingAtShovel, WaitingAtCrusher, Filling, Emptying:
		return 2
	case ApproachingTLCS, ApproachingTLSS:
		return 3
	case Waiting, LeavingShovel:
		return 4
	case ApproachingShovel, ApproachingCrusher:
		return 5
	default:
		return 6
	}
}

// tieBreakScale must exceed any tie-break value a band can carry (truck
// id, or a per-road/direction dispatch counter) so band order always
// dominates the comparison.
const tieBreakScale = 1 << 20

// priority computes the tie-break value used to order same-time events:
// band*scale + tiebreak. For most transitions tiebreak is the truck id;
// for road-completion transitions it is the per-(road,direction)
// dispatch counter from §4.3, so that arrivals tied in time still drain
// in departure order.
func priority(dest TruckLocation, tiebreak int) int {
	return priorityBand(dest)*tieBreakScale + tiebreak
}
