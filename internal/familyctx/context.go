// Package familyctx carries the family a request operates on.
package familyctx

import "context"

type contextKey struct{}

// FamilyContext is set by the family middleware once the family id in the
// path has been resolved.
type FamilyContext struct {
	FamilyID int64
	// Unlocked is true when the family has no edit PIN or the request
	// presented the right one.
	Unlocked  bool
	RequestID string
}

func WithFamily(ctx context.Context, fc FamilyContext) context.Context {
	return context.WithValue(ctx, contextKey{}, fc)
}

func FromContext(ctx context.Context) (FamilyContext, bool) {
	fc, ok := ctx.Value(contextKey{}).(FamilyContext)
	return fc, ok
}

func FamilyID(ctx context.Context) int64 {
	fc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return fc.FamilyID
}

func IsUnlocked(ctx context.Context) bool {
	fc, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return fc.Unlocked
}
