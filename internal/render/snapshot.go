package render

import (
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
)

// Snapshot is a dynamo.Observer that rasterizes every Every-th step.
type Snapshot struct {
	Encoder Encoder
	Domain  geom.Bounds
	Size    int
	Every   int

	frames int
}

var _ dynamo.Observer = (*Snapshot)(nil)

func NewSnapshot(enc Encoder, domain geom.Bounds, size, every int) *Snapshot {
	if every < 1 {
		every = 1
	}
	return &Snapshot{Encoder: enc, Domain: domain, Size: size, Every: every}
}

func (s *Snapshot) OnStep(pts []geom.Point, st dynamo.StepStats) error {
	if st.Step%s.Every != 0 {
		return nil
	}
	s.frames++
	return s.Encoder.Add(Rasterize(pts, s.Domain, s.Size))
}

func (s *Snapshot) Frames() int { return s.frames }

func (s *Snapshot) Close() error { return s.Encoder.Close() }
