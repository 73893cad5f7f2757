package xmem

import "github.com/Masterminds/semver/v3"

// ProtocolVersion is the metadata-region wire format version this build
// writes (spec.md §3, §6). It is a plain integer, not semver, because it
// identifies an on-disk byte layout, not a release.
const ProtocolVersion = int(version2)

// BindingVersion is this module's own release version, semver-formatted so
// that out-of-process language bindings (spec.md §6) can depend on a range
// instead of hardcoding a protocol integer. It has no bearing on what
// ProtocolVersion a given region was written with.
const BindingVersion = "2.1.0"

// CompatibleWith reports whether BindingVersion satisfies the given semver
// constraint (e.g. ">= 2.0.0, < 3.0.0"), for a binding to check before it
// starts talking to this pool implementation.
func CompatibleWith(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(BindingVersion)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}
