// Package audio handles WAV container encoding for PCM16LE mono streams and
// the data-URL framing the delivery surface ships audio in.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"os"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for a single PCM chunk.
type wavHeader struct {
	RIFF          [4]byte
	RIFFSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func newWAVHeader(dataSize uint32, sampleRate int) wavHeader {
	const (
		channels = 1
		bits     = 16
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	h := wavHeader{
		RIFFSize:      36 + dataSize,
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bits / 8),
		BlockAlign:    channels * bits / 8,
		BitsPerSample: bits,
		DataSize:      dataSize,
	}
	copy(h.RIFF[:], "RIFF")
	copy(h.WAVE[:], "WAVE")
	copy(h.Fmt[:], "fmt ")
	copy(h.Data[:], "data")
	return h
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(uint32(len(pcm)), sampleRate)); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

// WriteWAVPCM16LEFile writes raw PCM16LE mono audio as a WAV file.
func WriteWAVPCM16LEFile(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAVPCM16LETo(f, pcm, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WAVDataURL encodes PCM16LE mono audio as a base64 WAV data URL, the format
// audio chunks are delivered in.
func WAVDataURL(pcm []byte, sampleRate int) (string, error) {
	wav, err := EncodeWAVPCM16LE(pcm, sampleRate)
	if err != nil {
		return "", err
	}
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav), nil
}
