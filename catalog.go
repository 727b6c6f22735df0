package main

const (
	NumBanks      = 8
	VoicesPerBank = 32
)

// Catalog is the fixed bank/voice table. It is never modified after
// construction and may be read from any goroutine.
type Catalog struct {
	banks [NumBanks][VoicesPerBank]VoiceRecord
}

// NewCatalog returns a catalog with every slot holding the default voice.
func NewCatalog() *Catalog {
	c := &Catalog{}
	rec := NewVoiceRecord(defaultVoice)
	for b := range c.banks {
		for v := range c.banks[b] {
			c.banks[b][v] = rec
		}
	}
	return c
}

// Voice returns the record at (bank, voice).
func (c *Catalog) Voice(bank, voice int) (VoiceRecord, bool) {
	if bank < 0 || bank >= NumBanks || voice < 0 || voice >= VoicesPerBank {
		return VoiceRecord{}, false
	}
	return c.banks[bank][voice], true
}

// Names lists the display names of a bank.
func (c *Catalog) Names(bank int) []string {
	if bank < 0 || bank >= NumBanks {
		return nil
	}
	names := make([]string, VoicesPerBank)
	for v, rec := range c.banks[bank] {
		names[v] = DecodeRecord(rec).Name()
	}
	return names
}

// Selection is the current bank/voice pair.
type Selection struct {
	Bank  int
	Voice int
}

// VoiceLoader receives decoded voices.
type VoiceLoader interface {
	LoadVoiceParameters(p VoiceParams)
}

// CatalogIndex resolves bank select and program change messages into catalog
// lookups and loads the result into the engine. It belongs to the command
// goroutine.
type CatalogIndex struct {
	catalog *Catalog
	engine  VoiceLoader
	sel     Selection
}

func NewCatalogIndex(c *Catalog, engine VoiceLoader) *CatalogIndex {
	return &CatalogIndex{catalog: c, engine: engine}
}

// Selection returns the current bank and voice.
func (ci *CatalogIndex) Selection() Selection { return ci.sel }

// BankSelectMSB is accepted and ignored: the catalog only needs the LSB.
func (ci *CatalogIndex) BankSelectMSB(uint8) bool { return false }

// BankSelectLSB changes the current bank. The active voice stays loaded until
// the next program change.
func (ci *CatalogIndex) BankSelectLSB(v uint8) bool {
	if int(v) >= NumBanks {
		logger.Debug("catalog: bank out of range", "bank", v)
		return false
	}
	ci.sel.Bank = int(v)
	return true
}

// ProgramChange selects a voice. Programs past the end of the current bank
// address the following banks, counted from the current bank rather than
// from bank 0, so the reachable range shrinks as the current bank grows.
// The current bank itself is not changed by a cross-bank selection.
func (ci *CatalogIndex) ProgramChange(program uint8) (Selection, bool) {
	p := int(program)
	bank, voice := ci.sel.Bank, p
	switch {
	case p < VoicesPerBank:
	case p < (NumBanks-ci.sel.Bank)*VoicesPerBank:
		bank = ci.sel.Bank + p/VoicesPerBank
		voice = p % VoicesPerBank
	default:
		logger.Debug("catalog: program out of range", "program", program, "bank", ci.sel.Bank)
		return ci.sel, false
	}

	rec, _ := ci.catalog.Voice(bank, voice)
	params := DecodeRecord(rec)
	ci.engine.LoadVoiceParameters(params)
	ci.sel.Voice = voice
	logger.Debug("catalog: voice loaded", "bank", bank, "voice", voice, "name", params.Name())
	return Selection{Bank: bank, Voice: voice}, true
}

// LoadRecord pushes an externally supplied record (a runtime voice upload)
// through the same decode path as catalog voices.
func (ci *CatalogIndex) LoadRecord(rec VoiceRecord) VoiceParams {
	params := DecodeRecord(rec)
	ci.engine.LoadVoiceParameters(params)
	return params
}
