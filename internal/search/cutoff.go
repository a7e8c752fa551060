package search

// smartCutoff implements spec §4.7 step 5: given candidates already
// sorted by rerank score descending, decide how many become seeds.
//
// The top score sets two thresholds — a ratio of itself and an absolute
// delta below it — and the smaller (looser) of the two, raised to
// smartMinScore, becomes the dynamic floor applied after the first smartMinK candidates. This lets a
// query with one standout result return just that one, while a query
// with several close contenders keeps all of them up to smartMaxK.
func smartCutoff(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	top := candidates[0].RerankScore
	if top < smartMinScore {
		return candidates[:1]
	}

	ratioT := top * smartTopScoreRatio
	deltaT := top - smartTopScoreDeltaAbs
	dyn := ratioT
	if deltaT < dyn {
		dyn = deltaT
	}
	if dyn < smartMinScore {
		dyn = smartMinScore
	}

	var kept []Candidate
	for i, c := range candidates {
		if len(kept) >= smartMaxK {
			break
		}
		threshold := dyn
		if i < smartMinK {
			threshold = smartMinScore
		}
		if c.RerankScore < threshold {
			break
		}
		kept = append(kept, c)
	}

	minWanted := smartMinK
	if smartMaxK < minWanted {
		minWanted = smartMaxK
	}
	if len(kept) < minWanted {
		seen := make(map[string]bool, len(kept))
		for _, c := range kept {
			seen[c.ChunkID] = true
		}
		for _, c := range candidates {
			if len(kept) >= minWanted {
				break
			}
			if seen[c.ChunkID] || c.RerankScore < smartMinScore {
				continue
			}
			seen[c.ChunkID] = true
			kept = append(kept, c)
		}
	}

	return kept
}
