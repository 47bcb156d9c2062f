package render

import (
	"context"
	"iter"
	"time"

	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// Surface receives tiles one at a time. Implementations draw to a terminal,
// a buffer or a network stream.
type Surface interface {
	SetTile(x, y int, kind wfc.TileKind) error
}

// Draw sends every tile to the surface immediately and returns how many were drawn
func Draw(s Surface, tiles iter.Seq[Tile]) (int, error) {
	n := 0
	for t := range tiles {
		if err := s.SetTile(t.X, t.Y, t.Variant); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Play sends tiles to the surface in order, waiting delay after each one.
// It stops early when ctx is cancelled and returns how many tiles were drawn.
func Play(ctx context.Context, s Surface, tiles iter.Seq[Tile], delay time.Duration) (int, error) {
	n := 0
	for t := range tiles {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := s.SetTile(t.X, t.Y, t.Variant); err != nil {
			return n, err
		}
		n++

		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, ctx.Err()
		case <-timer.C:
		}
	}
	return n, nil
}

// SurfaceFunc adapts a function to the Surface interface
type SurfaceFunc func(x, y int, kind wfc.TileKind) error

// SetTile calls f
func (f SurfaceFunc) SetTile(x, y int, kind wfc.TileKind) error {
	return f(x, y, kind)
}
