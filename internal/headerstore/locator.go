package headerstore

// buildLocator returns the current block locator: the last ten main-chain
// heights in reverse order, then exponentially increasing back-steps,
// always ending at genesis.
func (s *Store) buildLocator() [][32]byte {
	heights := locatorHeights(s.TipHeight())
	out := make([][32]byte, len(heights))
	for i, h := range heights {
		out[i] = s.main[h].hash
	}
	return out
}

func locatorHeights(tip int) []int {
	if tip < 0 {
		return nil
	}
	var heights []int
	step := 1
	h := tip
	linear := 0
	for h >= 0 {
		heights = append(heights, h)
		if linear < 9 {
			linear++
			h--
			continue
		}
		h -= step
		step *= 2
	}
	if heights[len(heights)-1] != 0 {
		heights = append(heights, 0)
	}
	return heights
}

// locateAncestor finds the highest main-chain height referenced by locator,
// walking it in order since it is sent tip-first.
func (s *Store) locateAncestor(locator [][32]byte) (int, bool) {
	for _, h := range locator {
		if height, ok := s.byHash[h]; ok {
			return height, true
		}
	}
	return 0, false
}
