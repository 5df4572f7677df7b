package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.Allows(AllowScripts))
	for _, c := range []Capability{AllowSameOrigin, AllowTopNavigation, AllowPopups, AllowForms, AllowModals} {
		assert.False(t, p.Allows(c), "default policy must deny %s", c)
	}
	assert.Equal(t, "allow-scripts", p.Attribute())
	assert.Equal(t, "sandbox allow-scripts", p.HeaderValue())
	assert.True(t, p.Isolated())
}

func TestWiden(t *testing.T) {
	p, err := DefaultPolicy().Widen(AllowModals, "exercise uses alert()")
	require.NoError(t, err)

	assert.True(t, p.Allows(AllowModals))
	assert.Equal(t, "allow-modals allow-scripts", p.Attribute())
	assert.Equal(t, "exercise uses alert()", p.Reason(AllowModals))
	assert.True(t, p.Isolated())

	// The receiver is unchanged.
	assert.False(t, DefaultPolicy().Allows(AllowModals))

	again, err := p.Widen(AllowModals, "twice")
	require.NoError(t, err)
	assert.Equal(t, p.Capabilities(), again.Capabilities())
}

func TestWidenRejections(t *testing.T) {
	tests := []struct {
		name       string
		capability Capability
		reason     string
		errPart    string
	}{
		{"same origin", AllowSameOrigin, "needs storage", "cannot be granted"},
		{"top navigation", AllowTopNavigation, "links", "cannot be granted"},
		{"top navigation by activation", AllowTopNavigationByUserActivation, "links", "cannot be granted"},
		{"escaping popups", AllowPopupsToEscapeSandbox, "oauth", "cannot be granted"},
		{"unknown", Capability("allow-everything"), "why not", "unknown"},
		{"missing reason", AllowPopups, "  ", "requires a reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DefaultPolicy().Widen(tt.capability, tt.reason)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Equal(t, DefaultPolicy().Attribute(), p.Attribute())
		})
	}
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability(" Allow-Popups ")
	require.NoError(t, err)
	assert.Equal(t, AllowPopups, c)

	_, err = ParseCapability("allow-magic")
	assert.Error(t, err)
}

func TestZeroPolicyIsNotIsolated(t *testing.T) {
	var p Policy
	assert.False(t, p.Isolated())
	assert.Equal(t, "sandbox", p.HeaderValue())
	assert.Empty(t, p.Attribute())
}

func TestMarshalText(t *testing.T) {
	text, err := DefaultPolicy().MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "allow-scripts", string(text))
}

func TestRendererAttachesPolicy(t *testing.T) {
	var frames []Frame
	surface := SurfaceFunc(func(_ context.Context, f Frame) error {
		frames = append(frames, f)
		return nil
	})

	policy, err := DefaultPolicy().Widen(AllowForms, "form exercise")
	require.NoError(t, err)
	r := NewRenderer(surface, policy, nil)

	r.Render(context.Background(), "<p>1</p>")
	r.Render(context.Background(), "<p>2</p>")

	require.Len(t, frames, 2)
	assert.Equal(t, uint64(1), frames[0].Sequence)
	assert.Equal(t, uint64(2), frames[1].Sequence)
	assert.Equal(t, "<p>2</p>", frames[1].Document)
	for _, f := range frames {
		assert.True(t, f.Policy.Allows(AllowScripts))
		assert.True(t, f.Policy.Allows(AllowForms))
		assert.False(t, f.Policy.Allows(AllowSameOrigin))
	}
	assert.Equal(t, policy.Attribute(), r.Policy().Attribute())
}

func TestRendererReplacesUnsafePolicy(t *testing.T) {
	var got Frame
	r := NewRenderer(SurfaceFunc(func(_ context.Context, f Frame) error {
		got = f
		return nil
	}), Policy{}, nil)

	r.Render(context.Background(), "x")
	assert.Equal(t, "allow-scripts", got.Policy.Attribute())
}

func TestRendererSwallowsSurfaceErrors(t *testing.T) {
	r := NewRenderer(SurfaceFunc(func(context.Context, Frame) error {
		return errors.New("surface closed")
	}), DefaultPolicy(), nil)

	assert.NotPanics(t, func() {
		r.Render(context.Background(), "doc")
	})
}
