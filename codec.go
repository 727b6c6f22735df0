package main

import (
	"bytes"
)

const (
	VoiceRecordSize = 161 // single-voice dump: 6 header bytes + VoiceParamsSize
	VoiceParamsSize = 155 // engine-native (unpacked) voice layout
	PackedVoiceSize = 128 // one voice inside a 32-voice bulk dump

	voiceHeaderSize = VoiceRecordSize - VoiceParamsSize
	voiceNameOffset = 145 // within VoiceParams
	voiceNameSize   = 10
)

// Single voice dump header: F0 43 0n 00 01 1B (format 0, byte count 155).
var voiceDumpHeader = [voiceHeaderSize]byte{0xF0, 0x43, 0x00, 0x00, 0x01, 0x1B}

// VoiceRecord is a voice as stored in the catalog.
type VoiceRecord [VoiceRecordSize]byte

// VoiceParams is the 155-byte parameter layout the engine loads.
type VoiceParams [VoiceParamsSize]byte

// Name returns the display name with trailing padding removed.
func (p VoiceParams) Name() string {
	return string(bytes.TrimRight(p[voiceNameOffset:voiceNameOffset+voiceNameSize], " \x00"))
}

// Algorithm returns the 0-based algorithm number.
func (p VoiceParams) Algorithm() int { return int(p[algorithmIdx] & 0x1F) }

// NewVoiceRecord builds a catalog record for params.
func NewVoiceRecord(params VoiceParams) VoiceRecord {
	var rec VoiceRecord
	copy(rec[:], voiceDumpHeader[:])
	copy(rec[voiceHeaderSize:], params[:])
	return rec
}

// DecodeRecord extracts the engine layout from a record. Name bytes above 126
// are replaced by a space; nothing else is validated.
func DecodeRecord(rec VoiceRecord) VoiceParams {
	voice := rec
	for i := VoiceRecordSize - voiceNameSize; i < VoiceRecordSize; i++ {
		if voice[i] > 126 {
			voice[i] = ' '
		}
	}
	var p VoiceParams
	copy(p[:], voice[voiceHeaderSize:])
	return p
}

// VoiceRecordFromSysEx converts a single voice dump (F0 ... F7) into a
// record. It reports false when msg is too short to hold one.
func VoiceRecordFromSysEx(msg []byte) (VoiceRecord, bool) {
	var rec VoiceRecord
	if len(msg) < VoiceRecordSize {
		return rec, false
	}
	copy(rec[:], msg[:VoiceRecordSize])
	return rec, true
}

// VoiceSysEx builds the complete single voice dump for params, checksum and
// F7 included.
func VoiceSysEx(params VoiceParams) []byte {
	rec := NewVoiceRecord(params)
	out := make([]byte, 0, VoiceRecordSize+2)
	out = append(out, rec[:]...)
	return append(out, sysexChecksum(params[:]), 0xF7)
}

// UnpackVoice converts a bulk-dump packed voice into the engine layout.
//
// Packed operator block (17 bytes, operator 6 first):
//
//	0-3 rates, 4-7 levels, 8 break point, 9 left depth, 10 right depth,
//	11 curves (LC bits 0-1, RC bits 2-3), 12 rate scale (0-2) / detune (3-6),
//	13 AMS (0-1) / KVS (2-4), 14 output level, 15 mode (0) / coarse (1-5),
//	16 fine
func UnpackVoice(packed [PackedVoiceSize]byte) VoiceParams {
	var p VoiceParams
	for op := 0; op < 6; op++ {
		src := packed[op*17 : op*17+17]
		dst := p[op*21 : op*21+21]
		copy(dst[0:11], src[0:11])
		dst[11] = src[11] & 0x03
		dst[12] = (src[11] >> 2) & 0x03
		dst[13] = src[12] & 0x07
		dst[20] = (src[12] >> 3) & 0x0F
		dst[14] = src[13] & 0x03
		dst[15] = (src[13] >> 2) & 0x07
		dst[16] = src[14]
		dst[17] = src[15] & 0x01
		dst[18] = (src[15] >> 1) & 0x1F
		dst[19] = src[16]
	}
	copy(p[126:134], packed[102:110]) // pitch EG rates and levels
	p[134] = packed[110] & 0x1F
	p[135] = packed[111] & 0x07
	p[136] = (packed[111] >> 3) & 0x01
	copy(p[137:141], packed[112:116]) // LFO speed, delay, PMD, AMD
	p[141] = packed[116] & 0x01
	p[142] = (packed[116] >> 1) & 0x07
	p[143] = (packed[116] >> 4) & 0x07
	p[144] = packed[117]
	copy(p[voiceNameOffset:], packed[118:128])
	return p
}

// sysexChecksum is the Yamaha two's-complement 7-bit checksum.
func sysexChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return (^sum + 1) & 0x7F
}

// defaultVoice is "BRASS   1", loaded when nothing else is configured.
var defaultVoice = VoiceParams{
	49, 99, 28, 68, 98, 98, 91, 0, 39, 54, 50, 1, 1, 4, 0, 2, 82, 0, 1, 0, 7,
	77, 36, 41, 71, 99, 98, 98, 0, 39, 0, 0, 3, 3, 0, 0, 2, 98, 0, 1, 0, 8,
	77, 36, 41, 71, 99, 98, 98, 0, 39, 0, 0, 3, 3, 0, 0, 2, 99, 0, 1, 0, 7,
	77, 76, 82, 71, 99, 98, 98, 0, 39, 0, 0, 3, 3, 0, 0, 2, 99, 0, 1, 0, 5,
	62, 51, 29, 71, 82, 95, 96, 0, 27, 0, 7, 3, 1, 0, 0, 0, 86, 0, 0, 0, 14,
	72, 76, 99, 71, 99, 88, 96, 0, 39, 0, 14, 3, 3, 0, 0, 0, 98, 0, 0, 0, 14,
	84, 95, 95, 60, 50, 50, 50, 50, 21, 7, 1, 37, 0, 5, 0, 0, 4, 3, 24,
	66, 82, 65, 83, 83, 32, 32, 32, 49, 32,
}
