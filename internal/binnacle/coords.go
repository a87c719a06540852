package binnacle

// Span is a contig's placement in its scaffold's global coordinate
// system. Start > End encodes a reverse-oriented member; either way the
// contig occupies the half-open interval [Lo, Hi).
type Span struct {
	Start int
	End   int
}

// Forward reports whether the span reads left to right.
func (s Span) Forward() bool { return s.Start <= s.End }

// Lo is the smaller coordinate of the span.
func (s Span) Lo() int {
	if s.Start <= s.End {
		return s.Start
	}
	return s.End
}

// Hi is the larger coordinate of the span.
func (s Span) Hi() int {
	if s.Start <= s.End {
		return s.End
	}
	return s.Start
}

// AssignSpans computes the global coordinate system of every scaffold:
// a coordinate cursor advances member by member by contig length plus
// the estimated gap (negative gaps overlap), then all spans are shifted
// so the scaffold's smallest coordinate is 0. Sets each member's Span
// and the scaffold's Length.
func AssignSpans(scaffolds []Scaffold, g *Graph) {
	for i := range scaffolds {
		assignSpans(&scaffolds[i], g)
	}
}

func assignSpans(s *Scaffold, g *Graph) {
	cur := 0
	minLo, maxHi := 0, 0
	for i := range s.Members {
		m := &s.Members[i]
		c, _ := g.Contig(m.Contig)

		if m.Orientation == Forward {
			m.Span = Span{Start: cur, End: cur + c.Length}
		} else {
			m.Span = Span{Start: cur + c.Length, End: cur}
		}
		if m.Span.Lo() < minLo {
			minLo = m.Span.Lo()
		}
		if m.Span.Hi() > maxHi {
			maxHi = m.Span.Hi()
		}

		cur += c.Length + m.Gap
	}

	// normalize so the coordinate system starts at 0
	if minLo != 0 {
		for i := range s.Members {
			s.Members[i].Span.Start -= minLo
			s.Members[i].Span.End -= minLo
		}
	}
	s.Length = maxHi - minLo
}

// positionIndex maps every coordinate of the scaffold to the members
// whose spans cover it. Spans must already be assigned.
func positionIndex(s *Scaffold) map[int][]int {
	pos := make(map[int][]int, s.Length)
	for i := range s.Members {
		sp := s.Members[i].Span
		for p := sp.Lo(); p < sp.Hi(); p++ {
			pos[p] = append(pos[p], i)
		}
	}
	return pos
}
