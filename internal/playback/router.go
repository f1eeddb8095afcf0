package playback

import (
	"context"
	"errors"
)

// Router sends silent sources to Silent and everything else to Files.
type Router struct {
	Silent Opener
	Files  Opener
}

func (r Router) Open(ctx context.Context, src Source) (Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.Silent() {
		if r.Silent == nil {
			return SilentOpener{}.Open(ctx, src)
		}
		return r.Silent.Open(ctx, src)
	}
	if r.Files == nil {
		return nil, &PlaybackError{Op: "open", Source: src.Path, Err: ErrNoBackend}
	}
	m, err := r.Files.Open(ctx, src)
	if err != nil {
		var pe *PlaybackError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &PlaybackError{Op: "open", Source: src.Path, Err: err}
	}
	return m, nil
}
