// ABOUTME: PCM audio encoder
// ABOUTME: Encodes normalized float samples to 16-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

// PCM16 writes samples into dst as signed 16-bit LE and returns the bytes written.
// Samples that do not fit in dst are ignored.
func PCM16(dst []byte, samples []float32) int {
	n := min(len(samples), len(dst)/2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(samples[i])))
	}
	return n * 2
}
