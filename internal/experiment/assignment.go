package experiment

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// AssignGroup deterministically buckets (experimentID, requestName)
// into "control" or "variant". The digest algorithm — md5 of
// "<id>:<name>", first 32 bits interpreted as a fraction of
// 0xFFFFFFFF — mirrors the original idp-multicloud scheduler's
// experiment bucketing exactly, so existing traffic-split behavior is
// preserved bit-for-bit rather than reinvented. No clock, no RNG, no
// process identity enters the computation: the mapping is a pure
// function of the two strings, as spec.md §4.3 requires.
func AssignGroup(experimentID, requestName string, trafficFraction float64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s", experimentID, requestName)))
	bucket := float64(binary.BigEndian.Uint32(sum[:4])) / float64(0xFFFFFFFF)
	if bucket < trafficFraction {
		return "variant"
	}
	return "control"
}
