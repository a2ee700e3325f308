package configstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
)

// Word lists for auto-generated mask names. Read-only constants; the
// generated name is cosmetic and never participates in resolution.
var maskNameAdjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "crimson", "daring",
	"eager", "fierce", "gentle", "golden", "hidden", "icy", "jolly",
	"keen", "lively", "mellow", "nimble", "polar", "quiet", "rapid",
	"silent", "steady", "swift", "vivid", "wild",
}

var maskNameNouns = []string{
	"aurora", "badger", "canyon", "comet", "delta", "ember", "falcon",
	"glacier", "harbor", "island", "jaguar", "kestrel", "lagoon",
	"meadow", "nebula", "orchid", "pebble", "quartz", "ridge", "sparrow",
	"thicket", "tundra", "vortex", "willow", "zenith",
}

// generateMaskName returns a fresh "<adjective>-<noun>-<4 digits>" name.
func generateMaskName() string {
	adjective := maskNameAdjectives[rand.IntN(len(maskNameAdjectives))]
	noun := maskNameNouns[rand.IntN(len(maskNameNouns))]
	return fmt.Sprintf("%s-%s-%04d", adjective, noun, rand.IntN(9000)+1000)
}

// deriveSalt computes the default bucketing salt for a mask:
// hex(sha256("project:env:mask"))[:16]. Stable across repeated calls for the
// same triple, so assignment is reproducible even when the salt is not
// supplied explicitly.
func deriveSalt(projectID, env, maskID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", projectID, env, maskID)))
	return hex.EncodeToString(sum[:])[:16]
}
