package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgerreg/pkg/domain"
)

func TestSigner(t *testing.T) {
	ctx := context.Background()

	_, ok := Signer(ctx)
	assert.False(t, ok, "anonymous context has no signer")

	_, ok = Signer(WithSigner(ctx, domain.Account{}))
	assert.False(t, ok, "zero account is not a signer")

	alice := domain.AccountFromSeed("Alice")
	ctx = WithSigner(ctx, alice, "registrar")
	signer, ok := Signer(ctx)
	assert.True(t, ok)
	assert.Equal(t, alice, signer)
	assert.Equal(t, []string{"registrar"}, Roles(ctx))
}

func TestNowPrefersInjectedTime(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}
