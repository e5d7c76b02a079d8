package service

import "context"

// RedirectCache drops cached resolutions after a link or domain mutation.
type RedirectCache interface {
	Invalidate(ctx context.Context, host, code string)
}

type nopCache struct{}

func (nopCache) Invalidate(context.Context, string, string) {}
