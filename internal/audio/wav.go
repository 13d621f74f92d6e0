package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Format describes PCM audio carried through the service. The kitten model
// emits 16-bit little-endian mono at 24 kHz; the mock engine matches it.
type Format struct {
	SampleRate int
	Channels   int
}

const bitsPerSample = 16

// DefaultFormat is used when an engine does not report its own format.
var DefaultFormat = Format{SampleRate: 24000, Channels: 1}

func (f Format) normalized() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultFormat.SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}
	return f
}

// Duration reports the playback length of a PCM16LE payload in this format.
func (f Format) Duration(pcm []byte) time.Duration {
	f = f.normalized()
	bytesPerSecond := f.SampleRate * f.Channels * bitsPerSample / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(len(pcm)) * time.Second / time.Duration(bytesPerSecond)
}

// EncodeWAV wraps raw PCM16LE bytes in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, f Format) []byte {
	var buf bytes.Buffer
	// Errors are impossible when writing to a bytes.Buffer.
	_ = WriteWAV(&buf, pcm, f)
	return buf.Bytes()
}

// WriteWAV writes raw PCM16LE bytes to out as a WAV stream.
func WriteWAV(out io.Writer, pcm []byte, f Format) error {
	f = f.normalized()

	dataSize := uint32(len(pcm))
	byteRate := uint32(f.SampleRate * f.Channels * bitsPerSample / 8)
	blockAlign := uint16(f.Channels * bitsPerSample / 8)

	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, 36+dataSize)
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1) // PCM
	header = binary.LittleEndian.AppendUint16(header, uint16(f.Channels))
	header = binary.LittleEndian.AppendUint32(header, uint32(f.SampleRate))
	header = binary.LittleEndian.AppendUint32(header, byteRate)
	header = binary.LittleEndian.AppendUint16(header, blockAlign)
	header = binary.LittleEndian.AppendUint16(header, bitsPerSample)
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, dataSize)

	if _, err := out.Write(header); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

// WriteWAVFile writes raw PCM16LE bytes to path as a WAV file.
func WriteWAVFile(path string, pcm []byte, f Format) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(file, pcm, f); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Info summarizes a WAV payload's header.
type Info struct {
	Format   Format
	DataSize int
}

var errNotWAV = errors.New("not a RIFF/WAVE payload")

// Probe parses the header of a WAV payload. It understands only the simple
// single fmt/data layout this service produces.
func Probe(wav []byte) (Info, error) {
	if len(wav) < 44 ||
		!bytes.Equal(wav[0:4], []byte("RIFF")) ||
		!bytes.Equal(wav[8:12], []byte("WAVE")) ||
		!bytes.Equal(wav[12:16], []byte("fmt ")) {
		return Info{}, errNotWAV
	}
	if format := binary.LittleEndian.Uint16(wav[20:22]); format != 1 {
		return Info{}, fmt.Errorf("unsupported audio format %d (want PCM)", format)
	}
	info := Info{
		Format: Format{
			SampleRate: int(binary.LittleEndian.Uint32(wav[24:28])),
			Channels:   int(binary.LittleEndian.Uint16(wav[22:24])),
		},
	}
	if !bytes.Equal(wav[36:40], []byte("data")) {
		return Info{}, errNotWAV
	}
	info.DataSize = int(binary.LittleEndian.Uint32(wav[40:44]))
	if info.DataSize > len(wav)-44 {
		return Info{}, fmt.Errorf("truncated data chunk: header says %d bytes, have %d", info.DataSize, len(wav)-44)
	}
	return info, nil
}
