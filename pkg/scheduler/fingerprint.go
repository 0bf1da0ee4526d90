package scheduler

import (
	"encoding/binary"
	"encoding/json"

	farm "github.com/dgryski/go-farm"

	"github.com/rhuss/autoif/pkg/api"
)

// Fingerprint hashes the ordered item payloads and sampling parameters.
// Two runs of a stage may share a cache only if their fingerprints match.
// Item metadata is caller-owned and not part of the fingerprint.
func Fingerprint(items []api.WorkItem, params api.SamplingParams) uint64 {
	buf := make([]byte, 0, 256*len(items)+64)
	var ord [8]byte
	for _, it := range items {
		binary.BigEndian.PutUint64(ord[:], uint64(it.Ordinal))
		buf = append(buf, ord[:]...)
		for _, m := range it.Messages {
			buf = append(buf, m.Role...)
			buf = append(buf, 0)
			buf = append(buf, m.Content...)
			buf = append(buf, 0)
		}
		buf = append(buf, 0xff)
	}
	// SamplingParams holds only scalars, so encoding cannot fail.
	p, _ := json.Marshal(params)
	buf = append(buf, p...)
	return farm.Fingerprint64(buf)
}
