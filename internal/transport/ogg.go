package transport

import (
	"bufio"
	"bytes"
	"io"
)

const (
	oggHeaderLen  = 27
	oggCapture    = "OggS"
	maxSegmentLen = 255
)

// OggReader splits an Ogg/Opus stream into Opus packets.
//
// Header packets (OpusHead, OpusTags) are skipped. Bytes before a page capture pattern are discarded,
// so a reader can resync after garbage.
type OggReader struct {
	reader  *bufio.Reader
	header  []byte
	segs    []byte
	partial bytes.Buffer
	queue   [][]byte
}

// NewOggReader wraps r.
func NewOggReader(r io.Reader) *OggReader {
	return &OggReader{
		reader: bufio.NewReaderSize(r, 16384),
		header: make([]byte, oggHeaderLen),
		segs:   make([]byte, maxSegmentLen),
	}
}

// ReadPacket returns the next audio packet, or io.EOF when the stream ends.
func (o *OggReader) ReadPacket() ([]byte, error) {
	for len(o.queue) == 0 {
		if err := o.readPage(); err != nil {
			return nil, err
		}
	}

	packet := o.queue[0]
	o.queue = o.queue[1:]
	return packet, nil
}

func (o *OggReader) readPage() error {
	for {
		sig, err := o.reader.Peek(len(oggCapture))
		if err != nil {
			return normalizeEOF(err)
		}
		if string(sig) == oggCapture {
			break
		}
		if _, err := o.reader.Discard(1); err != nil {
			return normalizeEOF(err)
		}
	}

	if _, err := io.ReadFull(o.reader, o.header); err != nil {
		return normalizeEOF(err)
	}

	segTable := o.segs[:int(o.header[26])]
	if _, err := io.ReadFull(o.reader, segTable); err != nil {
		return normalizeEOF(err)
	}

	for _, segLen := range segTable {
		if _, err := io.CopyN(&o.partial, o.reader, int64(segLen)); err != nil {
			return normalizeEOF(err)
		}
		// A lacing value of 255 continues the packet into the next segment, possibly on the next page.
		if segLen == maxSegmentLen {
			continue
		}

		packet := bytes.Clone(o.partial.Bytes())
		o.partial.Reset()
		if isOpusHeader(packet) {
			continue
		}
		o.queue = append(o.queue, packet)
	}
	return nil
}

func isOpusHeader(packet []byte) bool {
	return len(packet) >= 8 && (string(packet[:8]) == "OpusHead" || string(packet[:8]) == "OpusTags")
}

// normalizeEOF reports a stream cut mid-page as a plain end of stream.
func normalizeEOF(err error) error {
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return err
}
