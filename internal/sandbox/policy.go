// Package sandbox hands composite documents to an isolated rendering
// surface together with the capability set the surface must enforce.
//
// The default Policy grants script execution and nothing else. Extra
// capabilities are added only through Widen, which requires a reason and
// refuses the capabilities that would let sandboxed content reach the host:
// same-origin access and top-level navigation.
package sandbox

import (
	"fmt"
	"sort"
	"strings"
)

// Capability is one token of an iframe sandbox attribute.
type Capability string

const (
	AllowScripts                        Capability = "allow-scripts"
	AllowSameOrigin                     Capability = "allow-same-origin"
	AllowTopNavigation                  Capability = "allow-top-navigation"
	AllowTopNavigationByUserActivation  Capability = "allow-top-navigation-by-user-activation"
	AllowTopNavigationToCustomProtocols Capability = "allow-top-navigation-to-custom-protocols"
	AllowPopups                         Capability = "allow-popups"
	AllowPopupsToEscapeSandbox          Capability = "allow-popups-to-escape-sandbox"
	AllowForms                          Capability = "allow-forms"
	AllowModals                         Capability = "allow-modals"
	AllowDownloads                      Capability = "allow-downloads"
	AllowPointerLock                    Capability = "allow-pointer-lock"
	AllowPresentation                   Capability = "allow-presentation"
	AllowOrientationLock                Capability = "allow-orientation-lock"
)

var known = map[Capability]bool{
	AllowScripts:                        true,
	AllowSameOrigin:                     true,
	AllowTopNavigation:                  true,
	AllowTopNavigationByUserActivation:  true,
	AllowTopNavigationToCustomProtocols: true,
	AllowPopups:                         true,
	AllowPopupsToEscapeSandbox:          true,
	AllowForms:                          true,
	AllowModals:                         true,
	AllowDownloads:                      true,
	AllowPointerLock:                    true,
	AllowPresentation:                   true,
	AllowOrientationLock:                true,
}

// forbidden capabilities break isolation from the host and are never granted.
var forbidden = map[Capability]string{
	AllowSameOrigin:                     "combined with allow-scripts it lets content remove its own sandbox",
	AllowTopNavigation:                  "content could navigate the host page away",
	AllowTopNavigationByUserActivation:  "content could navigate the host page away",
	AllowTopNavigationToCustomProtocols: "content could navigate the host page away",
	AllowPopupsToEscapeSandbox:          "popups would run unsandboxed",
}

// ParseCapability validates a capability token.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if !known[c] {
		return "", fmt.Errorf("unknown sandbox capability %q", s)
	}
	return c, nil
}

// Policy is an immutable sandbox capability set.
type Policy struct {
	grants  []Capability
	reasons map[Capability]string
}

// DefaultPolicy grants script execution only.
func DefaultPolicy() Policy {
	return Policy{grants: []Capability{AllowScripts}}
}

// Widen returns a copy of p that also grants c. The reason documents which
// feature needs the relaxation and must not be empty.
func (p Policy) Widen(c Capability, reason string) (Policy, error) {
	if !known[c] {
		return p, fmt.Errorf("unknown sandbox capability %q", c)
	}
	if why, ok := forbidden[c]; ok {
		return p, fmt.Errorf("capability %s cannot be granted: %s", c, why)
	}
	if strings.TrimSpace(reason) == "" {
		return p, fmt.Errorf("widening sandbox with %s requires a reason", c)
	}
	if p.Allows(c) {
		return p, nil
	}

	next := Policy{
		grants:  append(append([]Capability(nil), p.grants...), c),
		reasons: make(map[Capability]string, len(p.reasons)+1),
	}
	for k, v := range p.reasons {
		next.reasons[k] = v
	}
	next.reasons[c] = reason
	sort.Slice(next.grants, func(i, j int) bool { return next.grants[i] < next.grants[j] })

	return next, nil
}

// Allows reports whether c is granted.
func (p Policy) Allows(c Capability) bool {
	for _, g := range p.grants {
		if g == c {
			return true
		}
	}
	return false
}

// Capabilities returns the granted capabilities in stable order.
func (p Policy) Capabilities() []Capability {
	return append([]Capability(nil), p.grants...)
}

// Reason returns why c was added through Widen.
func (p Policy) Reason(c Capability) string {
	return p.reasons[c]
}

// Attribute renders the value of an iframe sandbox attribute.
func (p Policy) Attribute() string {
	parts := make([]string, len(p.grants))
	for i, g := range p.grants {
		parts[i] = string(g)
	}
	return strings.Join(parts, " ")
}

// HeaderValue renders the policy as a Content-Security-Policy sandbox
// directive, applied when the document is served on its own URL.
func (p Policy) HeaderValue() string {
	if len(p.grants) == 0 {
		return "sandbox"
	}
	return "sandbox " + p.Attribute()
}

// Isolated reports whether p keeps the invariants every render relies on:
// scripts run while same-origin access and top navigation stay denied.
func (p Policy) Isolated() bool {
	if !p.Allows(AllowScripts) {
		return false
	}
	for c := range forbidden {
		if p.Allows(c) {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.Attribute()), nil
}
