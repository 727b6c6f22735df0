package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	bankDataSize = VoicesPerBank * PackedVoiceSize // 4096
	bankDumpSize = 6 + bankDataSize + 2            // header, data, checksum, F7
)

// ParseBankDump decodes a 32-voice bulk dump (F0 43 0n 09 20 00 ... cc F7).
func ParseBankDump(data []byte) ([VoicesPerBank]VoiceRecord, error) {
	var bank [VoicesPerBank]VoiceRecord

	if len(data) != bankDumpSize {
		return bank, fmt.Errorf("unexpected bank dump size %d (want %d)", len(data), bankDumpSize)
	}
	if data[0] != 0xF0 || data[len(data)-1] != 0xF7 {
		return bank, errors.New("bank dump is not a SysEx frame")
	}
	if data[1] != 0x43 {
		return bank, errors.New("not a Yamaha SysEx")
	}
	if data[3] != 0x09 || data[4] != 0x20 || data[5] != 0x00 {
		return bank, fmt.Errorf("unexpected format 0x%02X (expected 32 voice bulk 0x09)", data[3])
	}

	payload := data[6 : 6+bankDataSize]
	if chk := sysexChecksum(payload); chk != data[6+bankDataSize] {
		return bank, fmt.Errorf("checksum mismatch: expected 0x%02X got 0x%02X", chk, data[6+bankDataSize])
	}

	for v := range bank {
		var packed [PackedVoiceSize]byte
		copy(packed[:], payload[v*PackedVoiceSize:])
		bank[v] = NewVoiceRecord(UnpackVoice(packed))
	}
	return bank, nil
}

// LoadCatalog builds a catalog from bank dump files; paths[i] fills bank i.
// Banks without a file keep the default voice.
func LoadCatalog(paths []string) (*Catalog, error) {
	if len(paths) > NumBanks {
		return nil, fmt.Errorf("too many bank files: %d (max %d)", len(paths), NumBanks)
	}
	c := NewCatalog()
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading bank %d: %w", i, err)
		}
		bank, err := ParseBankDump(data)
		if err != nil {
			return nil, fmt.Errorf("parsing bank %d (%s): %w", i, path, err)
		}
		c.banks[i] = bank
		logger.Info("catalog: bank loaded", "bank", i, "path", path, "first", DecodeRecord(bank[0]).Name())
	}
	return c, nil
}

// loadVoices returns the catalog for cfg: the configured bank files, or the
// default voice everywhere.
func loadVoices(cfg *Config) (*Catalog, error) {
	if len(cfg.Banks) == 0 {
		return NewCatalog(), nil
	}
	return LoadCatalog(cfg.Banks)
}
