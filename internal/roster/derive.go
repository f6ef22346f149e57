package roster

// ComputeStations assigns layover and origin stations across a completed
// pairing. It is a pure function of the already-built duty-period/leg
// structure and is idempotent.
//
// Rules:
//   - Single-day pairings (days == 1 or exactly one duty period) have no
//     layovers at all.
//   - Otherwise every duty period except the last lays over at the arrival
//     station of its final leg; the last duty period ends back at base and
//     gets nil.
//   - Every duty period's origin station is the departure station of its
//     first leg, regardless of position.
func ComputeStations(p *Pairing) {
	for i := range p.DutyPeriods {
		dp := &p.DutyPeriods[i]
		if len(dp.Legs) > 0 {
			origin := dp.Legs[0].DepartureStation
			dp.OriginStation = &origin
		} else {
			dp.OriginStation = nil
		}
	}

	n := len(p.DutyPeriods)
	if n == 0 {
		return
	}

	if n == 1 || p.Days == "1" {
		for i := range p.DutyPeriods {
			p.DutyPeriods[i].LayoverStation = nil
		}
		return
	}

	for i := range p.DutyPeriods {
		dp := &p.DutyPeriods[i]
		if i == n-1 || len(dp.Legs) == 0 {
			dp.LayoverStation = nil
			continue
		}
		station := dp.Legs[len(dp.Legs)-1].ArrivalStation
		dp.LayoverStation = &station
	}
}
