package genome

import (
	"fmt"
	"os"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Binary genome record, laid out as a flatbuffers table:
//
//	table GenomeRecord {
//	  id:      string;
//	  version: ushort;
//	  names:   [string];
//	  genes:   [double];
//	}
//
// Gene names travel with the values so records survive schema reordering.
const (
	binaryVersion uint16 = 1

	slotID      = 0
	slotVersion = 1
	slotNames   = 2
	slotGenes   = 3
	numSlots    = 4
)

// vtableOffset converts a field slot into its vtable byte offset.
func vtableOffset(slot int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*slot)
}

// EncodeBinary serializes a genome into a flatbuffer.
func EncodeBinary(g Genome) []byte {
	b := flatbuffers.NewBuilder(1024)

	id := b.CreateString(g.ID)

	nameOffsets := make([]flatbuffers.UOffsetT, NumGenes)
	for i := Gene(0); i < NumGenes; i++ {
		nameOffsets[i] = b.CreateString(i.String())
	}
	b.StartVector(flatbuffers.SizeUOffsetT, int(NumGenes), flatbuffers.SizeUOffsetT)
	for i := int(NumGenes) - 1; i >= 0; i-- {
		b.PrependUOffsetT(nameOffsets[i])
	}
	names := b.EndVector(int(NumGenes))

	b.StartVector(flatbuffers.SizeFloat64, int(NumGenes), flatbuffers.SizeFloat64)
	for i := int(NumGenes) - 1; i >= 0; i-- {
		b.PrependFloat64(g.Genes[i])
	}
	genes := b.EndVector(int(NumGenes))

	b.StartObject(numSlots)
	b.PrependUOffsetTSlot(slotID, id, 0)
	b.PrependUint16Slot(slotVersion, binaryVersion, 0)
	b.PrependUOffsetTSlot(slotNames, names, 0)
	b.PrependUOffsetTSlot(slotGenes, genes, 0)
	b.Finish(b.EndObject())

	return b.FinishedBytes()
}

// DecodeBinary reads a flatbuffer genome record. Genes missing from the
// record take their default; the result is normalized against schema
// (nil = default).
func DecodeBinary(buf []byte, schema *Schema) (g Genome, err error) {
	if len(buf) < flatbuffers.SizeUOffsetT {
		return Genome{}, fmt.Errorf("genome buffer too short: %d bytes", len(buf))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed genome buffer: %v", r)
		}
	}()

	if schema == nil {
		schema = &defaultSchema
	}

	tab := flatbuffers.Table{Bytes: buf, Pos: flatbuffers.GetUOffsetT(buf)}

	if o := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotVersion))); o != 0 {
		if v := tab.GetUint16(o + tab.Pos); v != binaryVersion {
			return Genome{}, fmt.Errorf("unsupported genome record version %d", v)
		}
	}

	g = schema.Default()
	if o := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotID))); o != 0 {
		g.ID = string(tab.ByteVector(o + tab.Pos))
	}

	namesOff := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotNames)))
	genesOff := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotGenes)))
	if namesOff == 0 || genesOff == 0 {
		return schema.Normalize(g), nil
	}

	n := tab.VectorLen(namesOff)
	if m := tab.VectorLen(genesOff); m != n {
		return Genome{}, fmt.Errorf("genome record has %d names but %d values", n, m)
	}
	namesStart := tab.Vector(namesOff)
	genesStart := tab.Vector(genesOff)
	for j := 0; j < n; j++ {
		name := string(tab.ByteVector(namesStart + flatbuffers.UOffsetT(j*flatbuffers.SizeUOffsetT)))
		gene, ok := GeneByName(name)
		if !ok {
			continue
		}
		g.Genes[gene] = tab.GetFloat64(genesStart + flatbuffers.UOffsetT(j*flatbuffers.SizeFloat64))
	}

	return schema.Normalize(g), nil
}

// SaveBinary writes a flatbuffer genome record to path.
func SaveBinary(path string, g Genome) error {
	return writeFileAtomic(path, EncodeBinary(g))
}

// LoadBinary reads a flatbuffer genome record from path.
func LoadBinary(path string, schema *Schema) (Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genome{}, fmt.Errorf("failed to read genome: %w", err)
	}
	return DecodeBinary(data, schema)
}
