package oidcx

import "context"

type callerIdentityKey struct{}

// CallerIdentity represents the identity established during ID token
// validation.
type CallerIdentity struct {
	Token     *IDToken
	DevBypass bool
}

// BindCallerIdentity stores the verified identity inside the context for
// downstream consumers.
func BindCallerIdentity(ctx context.Context, identity CallerIdentity) context.Context {
	return context.WithValue(ctx, callerIdentityKey{}, identity)
}

// CallerIdentityFromContext retrieves an identity previously stored in the
// context.
func CallerIdentityFromContext(ctx context.Context) (CallerIdentity, bool) {
	if ctx == nil {
		return CallerIdentity{}, false
	}
	value := ctx.Value(callerIdentityKey{})
	if value == nil {
		return CallerIdentity{}, false
	}
	identity, ok := value.(CallerIdentity)
	return identity, ok
}
