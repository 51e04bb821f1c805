package drm

import "fmt"

// FACParams is the parsed, fixed parameter set carried by the FAC word.
type FACParams struct {
	Mode              string // "B"
	SpectrumOccupancy string // "SO_0"
	InterleaveDepth   int    // interleave depth in frames, 1 = short
	MSCMode           int    // MSC constellation order, 16 = 16-QAM
	SDCMode           int    // SDC constellation order, 4 = 4-QAM
	NumServices       int
	ServiceType       int // 1 = data
	ServiceID         int
}

// encodeFAC builds the fixed 72-bit FAC word (64 data bits MSB-first,
// then 8 CRC bits) described in the data model.
func encodeFAC() []byte {
	data := make([]byte, 64)
	setBits := func(offset int, width int, value int) {
		for i := 0; i < width; i++ {
			bit := (value >> uint(width-1-i)) & 1
			data[offset+i] = byte(bit)
		}
	}
	setBits(0, 2, 0b01)  // robustness mode B
	setBits(2, 3, 0b000) // spectrum occupancy SO_0
	setBits(5, 1, 0)     // short interleave depth
	setBits(6, 3, 0b011) // MSC mode: 16-QAM
	setBits(9, 3, 0b001) // SDC mode: 4-QAM
	setBits(12, 2, 0b00) // numServices - 1 = 0
	setBits(14, 1, 1)    // audio/data flag: data
	setBits(21, 7, 0)    // service ID (default 0)

	dataBytes := bitsToBytes(data)
	crc := crc8(dataBytes)
	crcBits := bytesToBits([]byte{crc})

	out := make([]byte, 0, 72)
	out = append(out, data...)
	out = append(out, crcBits...)
	return out
}

// decodeFAC parses a 72-bit FAC word and verifies its CRC-8.
func decodeFAC(bits []byte) (FACParams, error) {
	if len(bits) < 72 {
		return FACParams{}, fmt.Errorf("fac: %w", ErrInputMalformed)
	}
	data := bits[:64]
	crcBits := bits[64:72]

	dataBytes := bitsToBytes(data)
	want := crc8(dataBytes)
	got := bitsToBytes(crcBits)[0]
	if got != want {
		return FACParams{}, fmt.Errorf("fac: %w", ErrCrcMismatch)
	}

	getBits := func(offset, width int) int {
		v := 0
		for i := 0; i < width; i++ {
			v = (v << 1) | int(data[offset+i])
		}
		return v
	}

	mode := getBits(0, 2)
	modeStr := "B"
	if mode != 0b01 {
		modeStr = "unknown"
	}
	spec := getBits(2, 3)
	specStr := "SO_0"
	if spec != 0 {
		specStr = "unknown"
	}
	depth := 1
	if getBits(5, 1) != 0 {
		depth = 2 // long interleave, unused by this profile
	}
	mscMode := getBits(6, 3)
	mscQam := 16
	if mscMode != 0b011 {
		mscQam = 0
	}
	sdcMode := getBits(9, 3)
	sdcQam := 4
	if sdcMode != 0b001 {
		sdcQam = 0
	}
	numServices := getBits(12, 2) + 1
	serviceType := getBits(14, 1)
	serviceID := getBits(21, 7)

	return FACParams{
		Mode:              modeStr,
		SpectrumOccupancy: specStr,
		InterleaveDepth:   depth,
		MSCMode:           mscQam,
		SDCMode:           sdcQam,
		NumServices:       numServices,
		ServiceType:       serviceType,
		ServiceID:         serviceID,
	}, nil
}

// SDCRecord is the payload length and MIME type carried by the SDC.
type SDCRecord struct {
	PayloadLength int
	MIME          string
}

// encodeSDC builds the SDC byte record: payload_length_24be || mime ||
// 0x00 || crc16_be. MIME is clipped to MaxMIMELen bytes.
func encodeSDC(payloadLen int, mime string) ([]byte, error) {
	if payloadLen < 0 || payloadLen > MaxPayloadLen {
		return nil, fmt.Errorf("sdc: %w", ErrPayloadTooLarge)
	}
	mimeBytes := []byte(mime)
	if len(mimeBytes) > MaxMIMELen {
		mimeBytes = mimeBytes[:MaxMIMELen]
	}

	buf := make([]byte, 0, 3+len(mimeBytes)+1+2)
	buf = append(buf, byte(payloadLen>>16), byte(payloadLen>>8), byte(payloadLen))
	buf = append(buf, mimeBytes...)
	buf = append(buf, 0x00)

	crc := crc16(buf)
	buf = append(buf, byte(crc>>8), byte(crc))
	return buf, nil
}

// decodeSDC parses and CRC-verifies an SDC byte record.
func decodeSDC(buf []byte) (SDCRecord, error) {
	if len(buf) < 3+1+2 {
		return SDCRecord{}, fmt.Errorf("sdc: %w", ErrInputMalformed)
	}
	body := buf[:len(buf)-2]
	wantCRC := crc16(body)
	gotCRC := uint16(buf[len(buf)-2])<<8 | uint16(buf[len(buf)-1])
	if gotCRC != wantCRC {
		return SDCRecord{}, fmt.Errorf("sdc: %w", ErrCrcMismatch)
	}

	payloadLen := int(body[0])<<16 | int(body[1])<<8 | int(body[2])
	mimeField := body[3:]
	end := 0
	for end < len(mimeField) && mimeField[end] != 0x00 {
		end++
	}
	return SDCRecord{PayloadLength: payloadLen, MIME: string(mimeField[:end])}, nil
}

// Segment is one MSC segment: a slice of the payload plus its
// reassembly header and CRC validity.
type Segment struct {
	SegNo int
	Total int
	Data  []byte
	CRCOK bool
}

// segmentMSC splits payload into MaxSegmentData-sized chunks, the last
// one possibly shorter.
func segmentMSC(payload []byte) []Segment {
	total := (len(payload) + MaxSegmentData - 1) / MaxSegmentData
	if total == 0 {
		total = 1
	}
	segs := make([]Segment, 0, total)
	for i := 0; i < total; i++ {
		start := i * MaxSegmentData
		end := start + MaxSegmentData
		if end > len(payload) {
			end = len(payload)
		}
		segs = append(segs, Segment{
			SegNo: i,
			Total: total,
			Data:  payload[start:end],
			CRCOK: true,
		})
	}
	return segs
}

// serialiseSegment renders one segment as segNo_be16 || total_be16 ||
// data || crc16_be, CRC computed over the header and data.
func serialiseSegment(seg Segment) []byte {
	header := []byte{
		byte(seg.SegNo >> 8), byte(seg.SegNo),
		byte(seg.Total >> 8), byte(seg.Total),
	}
	buf := make([]byte, 0, len(header)+len(seg.Data)+2)
	buf = append(buf, header...)
	buf = append(buf, seg.Data...)
	crc := crc16(buf)
	buf = append(buf, byte(crc>>8), byte(crc))
	return buf
}

// serialiseSegments concatenates the wire form of every segment.
func serialiseSegments(segs []Segment) []byte {
	var out []byte
	for _, s := range segs {
		out = append(out, serialiseSegment(s)...)
	}
	return out
}

// deserialiseSegments parses a concatenated segment stream. Every
// segment but the last carries exactly MaxSegmentData data bytes; the
// total segment count is read from the first segment's header.
//
// The bitstream handed to this function may carry trailing bytes beyond
// the real data: the top-level decoder runs Viterbi across a whole
// superframe's worth of coded bits, including the zero-padding the
// encoder appended to round out the superframe (§4.7 step 3), so bytes
// past the true end of the last segment decode to an arbitrary run
// rather than simply stopping. The last segment's length therefore
// can't be taken as "everything left in buf" — instead each candidate
// length up to MaxSegmentData is tried against the segment's own CRC-16
// and a verifying length is chosen as findSegmentCRCLength describes,
// mirroring the length search already used to recover the SDC record.
//
// A per-segment CRC failure marks that segment invalid rather than
// aborting the parse.
func deserialiseSegments(buf []byte) ([]Segment, error) {
	const headerSz = SegmentHeaderSz
	const crcSz = SegmentCRCSz
	if len(buf) < headerSz+crcSz {
		return nil, fmt.Errorf("msc: %w", ErrInputMalformed)
	}

	total := int(buf[2])<<8 | int(buf[3])
	if total <= 0 {
		return nil, fmt.Errorf("msc: %w", ErrInputMalformed)
	}

	segs := make([]Segment, 0, total)
	offset := 0
	for i := 0; i < total; i++ {
		if offset+headerSz+crcSz > len(buf) {
			break
		}
		if i < total-1 {
			dataLen := MaxSegmentData
			frameLen := headerSz + dataLen + crcSz
			if offset+frameLen > len(buf) {
				break
			}
			segs = append(segs, parseSegmentFrame(buf[offset:offset+frameLen], headerSz, dataLen))
			offset += frameLen
			continue
		}

		maxLen := len(buf) - offset - headerSz - crcSz
		if maxLen > MaxSegmentData {
			maxLen = MaxSegmentData
		}
		dataLen, ok := findSegmentCRCLength(buf[offset:], headerSz, crcSz, maxLen)
		if !ok {
			dataLen = maxLen
		}
		frameLen := headerSz + dataLen + crcSz
		segs = append(segs, parseSegmentFrame(buf[offset:offset+frameLen], headerSz, dataLen))
		offset += frameLen
	}
	return segs, nil
}

// findSegmentCRCLength tries data lengths from maxLen down to 0 (longest
// first, since the no-padding case's correct length is always maxLen
// itself) and collects the first run of consecutive lengths for which
// the segment's header+data+crc16 verifies. A valid segment followed by
// zero bytes also verifies at every longer length (the CRC-16 of a
// message followed by its own CRC is zero, and zero bytes keep it zero),
// so the run reaches down to the real length and the shortest length in
// the run is returned. The exception is a run of exactly two lengths
// whose longer one ends at the end of buf, which is also what an
// unpadded segment whose CRC ends in a 0x00 byte produces: there the
// longer length is returned.
func findSegmentCRCLength(buf []byte, headerSz, crcSz, maxLen int) (int, bool) {
	top, bottom := -1, -1
	for dataLen := maxLen; dataLen >= 0; dataLen-- {
		body := buf[:headerSz+dataLen]
		want := crc16(body)
		got := uint16(buf[headerSz+dataLen])<<8 | uint16(buf[headerSz+dataLen+1])
		if got == want {
			if top < 0 {
				top = dataLen
			}
			bottom = dataLen
		} else if top >= 0 {
			break
		}
	}
	if top < 0 {
		return 0, false
	}
	if top-bottom == 1 && headerSz+top+crcSz == len(buf) {
		return top, true
	}
	return bottom, true
}

// parseSegmentFrame parses one header+data+crc frame of known dataLen.
func parseSegmentFrame(frame []byte, headerSz, dataLen int) Segment {
	segNo := int(frame[0])<<8 | int(frame[1])
	segTotal := int(frame[2])<<8 | int(frame[3])
	data := frame[headerSz : headerSz+dataLen]
	body := frame[:headerSz+dataLen]
	wantCRC := crc16(body)
	gotCRC := uint16(frame[headerSz+dataLen])<<8 | uint16(frame[headerSz+dataLen+1])

	return Segment{
		SegNo: segNo,
		Total: segTotal,
		Data:  data,
		CRCOK: gotCRC == wantCRC,
	}
}

// reassembleMSC keeps, per SegNo, the first CRC-valid segment, then
// concatenates segments 0..expectedTotal-1 in order.
func reassembleMSC(segs []Segment, expectedTotal int) ([]byte, error) {
	bySegNo := make(map[int]Segment, expectedTotal)
	for _, s := range segs {
		if !s.CRCOK {
			continue
		}
		if _, ok := bySegNo[s.SegNo]; !ok {
			bySegNo[s.SegNo] = s
		}
	}

	var out []byte
	for i := 0; i < expectedTotal; i++ {
		s, ok := bySegNo[i]
		if !ok {
			return nil, fmt.Errorf("msc segment %d: %w", i, ErrMissing)
		}
		out = append(out, s.Data...)
	}
	return out, nil
}
