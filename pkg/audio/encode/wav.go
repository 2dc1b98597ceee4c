// ABOUTME: WAV file writer for sample buffers
// ABOUTME: Writes a canonical 44-byte RIFF header followed by 16-bit PCM
package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kisandost/kisandost-go/pkg/audio"
)

const wavHeaderSize = 44

// WriteWAV writes buf as a 16-bit PCM WAV file
func WriteWAV(w io.Writer, buf *audio.SampleBuffer) error {
	if buf == nil || buf.SampleRate <= 0 || buf.Channels <= 0 {
		return fmt.Errorf("write wav: invalid buffer")
	}

	dataSize := len(buf.Samples) * 2
	blockAlign := buf.Channels * 2

	header := make([]byte, wavHeaderSize)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(buf.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	data := make([]byte, dataSize)
	PCM16(data, buf.Samples)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
