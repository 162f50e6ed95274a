package qmf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/kawakami-masaki0/mct-model-optimization/pkg/quant"
)

const (
	modelInfoVersion   uint32 = 1
	tensorIndexVersion uint32 = 1
	tensorDataVersion  uint32 = 1

	flagPerChannel uint8 = 1 << 0
)

// indexEntry is the decoded form of one tensor index record.
type indexEntry struct {
	Name       string
	NBits      uint8
	PerChannel bool
	Scales     []float32
	ZeroPoints []int32
	DataOff    uint64
	DataLen    uint64
}

// Write packs a quantized model into a QMF file at path.
func Write(path string, qm *quant.QuantizedModel) error {
	if qm == nil {
		return fmt.Errorf("qmf: nil model")
	}

	info, err := json.Marshal(qm)
	if err != nil {
		return fmt.Errorf("qmf: encode model info: %w", err)
	}

	entries, data, err := collectTensors(qm)
	if err != nil {
		return err
	}
	index := encodeIndex(entries)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := NewWriter(f)
	if err != nil {
		return err
	}
	if err := w.WriteSection(SectionModelInfo, modelInfoVersion, info); err != nil {
		return err
	}
	if err := w.WriteSection(SectionTensorIndex, tensorIndexVersion, index); err != nil {
		return err
	}
	if err := w.WriteSection(SectionTensorData, tensorDataVersion, data); err != nil {
		return err
	}
	return w.Finalize()
}

// Read unpacks a quantized model from a QMF file, reattaching tensor
// payloads from the data section.
func Read(path string) (*quant.QuantizedModel, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Section(SectionModelInfo)
	if err != nil {
		return nil, err
	}
	var qm quant.QuantizedModel
	if err := json.Unmarshal(info, &qm); err != nil {
		return nil, fmt.Errorf("qmf: decode model info: %w", err)
	}

	indexRaw, err := f.Section(SectionTensorIndex)
	if err != nil {
		return nil, err
	}
	entries, err := decodeIndex(indexRaw)
	if err != nil {
		return nil, err
	}
	data, err := f.Section(SectionTensorData)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]indexEntry, len(entries))
	for _, e := range entries {
		if e.DataOff > uint64(len(data)) || e.DataLen > uint64(len(data))-e.DataOff {
			return nil, ErrCorruptFile
		}
		byName[e.Name] = e
	}
	for i := range qm.Ops {
		op := &qm.Ops[i]
		for attr, qt := range op.Weights {
			e, ok := byName[op.Name+"/"+attr]
			if !ok {
				return nil, fmt.Errorf("%w: tensor %s/%s not indexed", ErrCorruptFile, op.Name, attr)
			}
			if len(qt.Scales) == 0 || len(qt.Scales) != len(qt.ZeroPoints) {
				return nil, fmt.Errorf("%w: tensor %s/%s quant params", ErrCorruptFile, op.Name, attr)
			}
			// Copy out so the caller outlives the mapping.
			qt.Data = append([]byte(nil), data[e.DataOff:e.DataOff+e.DataLen]...)
			op.Weights[attr] = qt
		}
	}
	return &qm, nil
}

func collectTensors(qm *quant.QuantizedModel) ([]indexEntry, []byte, error) {
	var entries []indexEntry
	var data []byte
	for _, op := range qm.Ops {
		attrs := make([]string, 0, len(op.Weights))
		for attr := range op.Weights {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			qt := op.Weights[attr]
			if len(qt.Scales) == 0 || len(qt.Scales) != len(qt.ZeroPoints) {
				return nil, nil, fmt.Errorf("qmf: tensor %s/%s has %d scales and %d zero points",
					op.Name, attr, len(qt.Scales), len(qt.ZeroPoints))
			}
			// Keep each payload 8-aligned within the section.
			if rem := len(data) % align; rem != 0 {
				data = append(data, make([]byte, align-rem)...)
			}
			entries = append(entries, indexEntry{
				Name:       op.Name + "/" + attr,
				NBits:      uint8(qt.NBits),
				PerChannel: qt.PerChannel,
				Scales:     qt.Scales,
				ZeroPoints: qt.ZeroPoints,
				DataOff:    uint64(len(data)),
				DataLen:    uint64(len(qt.Data)),
			})
			data = append(data, qt.Data...)
		}
	}
	return entries, data, nil
}

func encodeIndex(entries []indexEntry) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		name := []byte(e.Name)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
		flags := uint8(0)
		if e.PerChannel {
			flags |= flagPerChannel
		}
		buf = append(buf, e.NBits, flags)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Scales)))
		buf = binary.LittleEndian.AppendUint64(buf, e.DataOff)
		buf = binary.LittleEndian.AppendUint64(buf, e.DataLen)
		for _, s := range e.Scales {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(s))
		}
		for _, z := range e.ZeroPoints {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(z))
		}
	}
	return buf
}

func decodeIndex(buf []byte) ([]indexEntry, error) {
	if len(buf) < 4 {
		return nil, ErrCorruptFile
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]

	take := func(n int) ([]byte, error) {
		if len(buf) < n {
			return nil, ErrCorruptFile
		}
		out := buf[:n]
		buf = buf[n:]
		return out, nil
	}

	entries := make([]indexEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		b, err := take(2)
		if err != nil {
			return nil, err
		}
		nameLen := int(binary.LittleEndian.Uint16(b))
		if b, err = take(nameLen); err != nil {
			return nil, err
		}
		name := string(b)
		if b, err = take(2); err != nil {
			return nil, err
		}
		nbits, flags := b[0], b[1]
		if b, err = take(4); err != nil {
			return nil, err
		}
		channels := int(binary.LittleEndian.Uint32(b))
		if channels == 0 {
			return nil, ErrCorruptFile
		}
		if b, err = take(16); err != nil {
			return nil, err
		}
		dataOff := binary.LittleEndian.Uint64(b[:8])
		dataLen := binary.LittleEndian.Uint64(b[8:])

		scales := make([]float32, channels)
		zeros := make([]int32, channels)
		if b, err = take(4 * channels); err != nil {
			return nil, err
		}
		for c := 0; c < channels; c++ {
			scales[c] = math.Float32frombits(binary.LittleEndian.Uint32(b[c*4:]))
		}
		if b, err = take(4 * channels); err != nil {
			return nil, err
		}
		for c := 0; c < channels; c++ {
			zeros[c] = int32(binary.LittleEndian.Uint32(b[c*4:]))
		}

		entries = append(entries, indexEntry{
			Name:       name,
			NBits:      nbits,
			PerChannel: flags&flagPerChannel != 0,
			Scales:     scales,
			ZeroPoints: zeros,
			DataOff:    dataOff,
			DataLen:    dataLen,
		})
	}
	return entries, nil
}
